package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"warscan/internal/imageio"
	"warscan/internal/match"
)

var matchCmd = &cobra.Command{
	Use:   "match <crop-a> <crop-b>",
	Short: "Check whether two row crops show the same identity",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := imageio.Load(args[0])
		if err != nil {
			return err
		}
		defer a.Close()
		b, err := imageio.Load(args[1])
		if err != nil {
			return err
		}
		defer b.Close()

		m := match.NewMatcher(match.DefaultParams(), nil, nil)
		same, err := m.VerifyPair(a, b)
		if err != nil {
			return err
		}
		if same {
			fmt.Println("match")
		} else {
			fmt.Println("no match")
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(matchCmd)
}
