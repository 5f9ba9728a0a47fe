package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
	"github.com/typemat/typemat"
)

var subclassesCmd = &cobra.Command{
	Use:   "subclasses <type>",
	Short: "List every type extending or implementing the given one",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		reg, err := typemat.Scan(GetConfig())
		if err != nil {
			return fmt.Errorf("scan failed: %w", err)
		}
		defer reg.Close()

		subs, err := reg.GetSubClasses(args[0])
		if err != nil {
			return err
		}
		for _, d := range subs {
			fmt.Println(d.QualifiedName)
		}
		fmt.Printf("%d subclasses of %s\n", len(subs), args[0])
		return nil
	},
}

func init() {
	rootCmd.AddCommand(subclassesCmd)
}
