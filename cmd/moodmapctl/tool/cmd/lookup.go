package cmd

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
)

// lookupCmd 手动定位
var lookupCmd = &cobra.Command{
	Use:   "lookup <query>",
	Short: "把城市、地址或地标解析为坐标",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		rt, err := newRuntime()
		if err != nil {
			return err
		}
		defer rt.cleanup()

		ctx, cancel := context.WithTimeout(cmd.Context(), 30*time.Second)
		defer cancel()
		p, err := rt.search.Lookup(ctx, strings.Join(args, " "))
		if err != nil {
			return err
		}
		fmt.Printf("%s  %s\n", color.GreenString(p.Name), p.Position)
		if p.Description != "" {
			fmt.Println(color.HiBlackString(p.Description))
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(lookupCmd)
}
