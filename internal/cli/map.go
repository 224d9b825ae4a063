package cli

import (
	"encoding/json"
	"fmt"
	"text/tabwriter"

	"github.com/pkg/errors"
	"github.com/spf13/cobra"

	"github.com/chabad360/oscbind/bind"
	"github.com/chabad360/oscbind/datapath"
	"github.com/chabad360/oscbind/mapping"
)

func init() {
	mapCmd := &cobra.Command{
		Use:   "map",
		Short: "Manage OSC address to property path mappings",
	}

	add := &cobra.Command{
		Use:   "add",
		Short: "Append a mapping",
		Args:  cobra.NoArgs,
		RunE:  runMapAdd,
	}
	add.Flags().StringP("address", "a", "", "OSC address, e.g. /fader1")
	add.Flags().StringP("path", "p", "", `Property path, e.g. data.objects["Cube"].location[2]`)
	add.Flags().StringP("name", "n", "", `Display name (default "Mapping N")`)
	add.Flags().Bool("disabled", false, "Add the mapping switched off")

	set := &cobra.Command{
		Use:   "set <position|id>",
		Short: "Change a mapping",
		Args:  cobra.ExactArgs(1),
		RunE:  runMapSet,
	}
	set.Flags().StringP("address", "a", "", "OSC address")
	set.Flags().StringP("path", "p", "", "Property path")
	set.Flags().StringP("name", "n", "", "Display name")

	list := &cobra.Command{
		Use:   "list",
		Short: "List mappings in apply order",
		Args:  cobra.NoArgs,
		RunE:  runMapList,
	}
	list.Flags().Bool("json", false, "Output JSON")

	rm := &cobra.Command{
		Use:   "rm <position|id>",
		Short: "Delete a mapping",
		Args:  cobra.ExactArgs(1),
		RunE:  runMapRm,
	}
	enable := &cobra.Command{
		Use:   "enable <position|id>",
		Short: "Switch a mapping on",
		Args:  cobra.ExactArgs(1),
		RunE:  func(cmd *cobra.Command, args []string) error { return setEnabled(cmd, args[0], true) },
	}
	disable := &cobra.Command{
		Use:   "disable <position|id>",
		Short: "Switch a mapping off",
		Args:  cobra.ExactArgs(1),
		RunE:  func(cmd *cobra.Command, args []string) error { return setEnabled(cmd, args[0], false) },
	}

	mapCmd.AddCommand(add, set, list, rm, enable, disable)
	RootCmd.AddCommand(mapCmd)
}

// checkPath rejects property paths that can never resolve.
func checkPath(path string) error {
	if path == "" {
		return nil
	}
	p, err := datapath.Split(path)
	if err != nil {
		return errors.Wrapf(err, "property path %q", path)
	}
	if _, err := datapath.ParseOwner(p.Owner); err != nil {
		return errors.Wrapf(err, "property path %q", path)
	}
	return nil
}

func runMapAdd(cmd *cobra.Command, args []string) error {
	address, _ := cmd.Flags().GetString("address")
	path, _ := cmd.Flags().GetString("path")
	name, _ := cmd.Flags().GetString("name")
	disabled, _ := cmd.Flags().GetBool("disabled")

	if err := checkPath(path); err != nil {
		return err
	}

	s, err := openStore()
	if err != nil {
		return err
	}
	defer s.Close()

	r, err := s.Add(cmd.Context(), mapping.AddParams{
		Name:     name,
		Address:  bind.NormalizeAddress(address),
		Datapath: path,
		Disabled: disabled,
	})
	if err != nil {
		return errors.Wrap(err, "add")
	}

	fmt.Fprintf(cmd.OutOrStdout(), "%d %s %s\n", r.Position+1, r.ID, r.Name)
	return nil
}

func runMapSet(cmd *cobra.Command, args []string) error {
	var p mapping.UpdateParams
	if cmd.Flags().Changed("address") {
		a, _ := cmd.Flags().GetString("address")
		a = bind.NormalizeAddress(a)
		p.Address = &a
	}
	if cmd.Flags().Changed("path") {
		path, _ := cmd.Flags().GetString("path")
		if err := checkPath(path); err != nil {
			return err
		}
		p.Datapath = &path
	}
	if cmd.Flags().Changed("name") {
		n, _ := cmd.Flags().GetString("name")
		p.Name = &n
	}

	s, err := openStore()
	if err != nil {
		return err
	}
	defer s.Close()

	r, err := s.Find(cmd.Context(), args[0])
	if err != nil {
		return err
	}
	r, err = s.Update(cmd.Context(), r.ID, p)
	if err != nil {
		return errors.Wrap(err, "set")
	}

	fmt.Fprintf(cmd.OutOrStdout(), "%d %s %s\n", r.Position+1, r.ID, r.Name)
	return nil
}

func runMapList(cmd *cobra.Command, args []string) error {
	asJSON, _ := cmd.Flags().GetBool("json")

	s, err := openStore()
	if err != nil {
		return err
	}
	defer s.Close()

	rows, err := s.List(cmd.Context())
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	if asJSON {
		if rows == nil {
			rows = []mapping.Row{}
		}
		b, _ := json.MarshalIndent(rows, "", "  ")
		fmt.Fprintln(out, string(b))
		return nil
	}

	tw := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "#\tON\tNAME\tADDRESS\tPATH\tID")
	for _, r := range rows {
		on := "yes"
		if !r.Enabled {
			on = "no"
		}
		fmt.Fprintf(tw, "%d\t%s\t%s\t%s\t%s\t%s\n", r.Position+1, on, r.Name, r.Address, r.Datapath, r.ID)
	}
	return tw.Flush()
}

func runMapRm(cmd *cobra.Command, args []string) error {
	s, err := openStore()
	if err != nil {
		return err
	}
	defer s.Close()

	r, err := s.Find(cmd.Context(), args[0])
	if err != nil {
		return err
	}
	if err := s.Remove(cmd.Context(), r.ID); err != nil {
		return errors.Wrap(err, "rm")
	}

	fmt.Fprintf(cmd.OutOrStdout(), "removed %s %s\n", r.ID, r.Name)
	return nil
}

func setEnabled(cmd *cobra.Command, ref string, enabled bool) error {
	s, err := openStore()
	if err != nil {
		return err
	}
	defer s.Close()

	r, err := s.Find(cmd.Context(), ref)
	if err != nil {
		return err
	}
	if err := s.SetEnabled(cmd.Context(), r.ID, enabled); err != nil {
		return err
	}

	state := "enabled"
	if !enabled {
		state = "disabled"
	}
	fmt.Fprintf(cmd.OutOrStdout(), "%s %s %s\n", state, r.ID, r.Name)
	return nil
}
