// Package cli implements the oscbind commands.
package cli

import (
	"os"
	"path/filepath"

	"github.com/pkg/errors"
	"github.com/spf13/cobra"

	"github.com/chabad360/oscbind/internal/logging"
	"github.com/chabad360/oscbind/mapping"
)

var (
	dbPath   string
	logLevel string
)

// RootCmd is the top-level command.
var RootCmd = &cobra.Command{
	Use:   "oscbind",
	Short: "Drive scene properties from OSC",
	Long: "oscbind listens for OSC messages over UDP and applies the latest value of each\n" +
		"address to a property path of a scene, optionally recording keyframes.",
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		if logLevel == "" {
			return nil
		}
		level, err := logging.ParseLevel(logLevel)
		if err != nil {
			return err
		}
		logging.SetAllLevels(level)
		return nil
	},
}

func init() {
	RootCmd.PersistentFlags().StringVarP(&dbPath, "db", "d", "", "Database path (default: $OSCBIND_DB or ~/.oscbind/oscbind.db)")
	RootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "Level for every log category: debug, info, warn, error or a number")
}

func getDBPath() string {
	if dbPath != "" {
		return dbPath
	}
	if env := os.Getenv("OSCBIND_DB"); env != "" {
		return env
	}
	home, _ := os.UserHomeDir()
	return filepath.Join(home, ".oscbind", "oscbind.db")
}

func openStore() (*mapping.SQLiteStore, error) {
	s, err := mapping.NewSQLiteStore(getDBPath())
	if err != nil {
		return nil, errors.Wrap(err, "open store")
	}
	return s, nil
}
