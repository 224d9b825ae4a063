package cli

import (
	"fmt"

	"github.com/spf13/cobra"
)

func init() {
	configCmd := &cobra.Command{
		Use:   "config",
		Short: "Show or change the saved listener settings",
	}

	show := &cobra.Command{
		Use:   "show",
		Short: "Print the saved host and port",
		Args:  cobra.NoArgs,
		RunE:  runConfigShow,
	}
	set := &cobra.Command{
		Use:   "set",
		Short: "Save the host and port used by listen",
		Args:  cobra.NoArgs,
		RunE:  runConfigSet,
	}
	set.Flags().String("host", "", "Bind host")
	set.Flags().Int("port", 0, "Bind port (1-65535)")

	configCmd.AddCommand(show, set)
	RootCmd.AddCommand(configCmd)
}

func runConfigShow(cmd *cobra.Command, args []string) error {
	s, err := openStore()
	if err != nil {
		return err
	}
	defer s.Close()

	st, err := s.Settings(cmd.Context())
	if err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "host=%s\nport=%d\n", st.Host, st.Port)
	return nil
}

func runConfigSet(cmd *cobra.Command, args []string) error {
	s, err := openStore()
	if err != nil {
		return err
	}
	defer s.Close()

	st, err := s.Settings(cmd.Context())
	if err != nil {
		return err
	}
	if cmd.Flags().Changed("host") {
		st.Host, _ = cmd.Flags().GetString("host")
	}
	if cmd.Flags().Changed("port") {
		st.Port, _ = cmd.Flags().GetInt("port")
	}
	if err := s.SaveSettings(cmd.Context(), st); err != nil {
		return err
	}

	fmt.Fprintf(cmd.OutOrStdout(), "host=%s\nport=%d\n", st.Host, st.Port)
	return nil
}
