package cli

import (
	"fmt"
	"net"
	"strconv"

	"github.com/pkg/errors"
	"github.com/spf13/cobra"

	"github.com/chabad360/oscbind/bind"
	"github.com/chabad360/oscbind/osc"
)

func init() {
	cmd := &cobra.Command{
		Use:   "send <address> <value>...",
		Short: "Send one OSC message",
		Long: "Send one OSC message with numeric arguments, e.g. for testing mappings.\n" +
			"The destination defaults to the saved listener settings.",
		Args: cobra.MinimumNArgs(1),
		RunE: runSend,
	}
	cmd.Flags().String("to", "", "Destination host:port")
	cmd.Flags().StringP("type", "t", "f", "Argument type: f (float32), i (int32) or d (float64)")
	cmd.Flags().Bool("bundle", false, "Wrap the message in a bundle")

	RootCmd.AddCommand(cmd)
}

func runSend(cmd *cobra.Command, args []string) error {
	to, _ := cmd.Flags().GetString("to")
	typ, _ := cmd.Flags().GetString("type")
	asBundle, _ := cmd.Flags().GetBool("bundle")

	msg, err := buildMessage(bind.NormalizeAddress(args[0]), typ, args[1:])
	if err != nil {
		return err
	}

	if to == "" {
		s, err := openStore()
		if err != nil {
			return err
		}
		st, err := s.Settings(cmd.Context())
		s.Close()
		if err != nil {
			return err
		}
		to = net.JoinHostPort(st.Host, strconv.Itoa(st.Port))
	}

	client, err := osc.Dial(to)
	if err != nil {
		return errors.Wrapf(err, "dial %s", to)
	}
	defer client.Close()

	var p osc.Packet = msg
	if asBundle {
		p = osc.NewBundle(msg)
	}
	if err := client.Send(p); err != nil {
		return errors.Wrap(err, "send")
	}

	fmt.Fprintf(cmd.OutOrStdout(), "%s -> %s\n", msg, to)
	return nil
}

func buildMessage(address, typ string, values []string) (*osc.Message, error) {
	msg := osc.NewMessage(address)
	for _, v := range values {
		var arg interface{}
		switch typ {
		case "f":
			f, err := strconv.ParseFloat(v, 32)
			if err != nil {
				return nil, errors.Wrapf(err, "float argument %q", v)
			}
			arg = float32(f)
		case "d":
			f, err := strconv.ParseFloat(v, 64)
			if err != nil {
				return nil, errors.Wrapf(err, "double argument %q", v)
			}
			arg = f
		case "i":
			i, err := strconv.ParseInt(v, 10, 32)
			if err != nil {
				return nil, errors.Wrapf(err, "int argument %q", v)
			}
			arg = int32(i)
		default:
			return nil, errors.Errorf("unknown argument type %q", typ)
		}
		if err := msg.Append(arg); err != nil {
			return nil, err
		}
	}
	return msg, nil
}
