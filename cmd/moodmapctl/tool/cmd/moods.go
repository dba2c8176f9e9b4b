package cmd

import (
	"fmt"
	"strings"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
)

// moodsCmd 列出心情目录
var moodsCmd = &cobra.Command{
	Use:   "moods",
	Short: "列出支持的心情与检索关键词",
	RunE: func(cmd *cobra.Command, args []string) error {
		rt, err := newRuntime()
		if err != nil {
			return err
		}
		defer rt.cleanup()

		def := rt.catalog.Default()
		for _, p := range rt.catalog.Moods() {
			name := color.New(color.Bold).Sprint(p.Mood)
			if p.Mood == def {
				name += color.HiBlackString(" (default)")
			}
			fmt.Printf("%s  %s\n", name, p.Description)
			fmt.Printf("  %s\n", p.Reason)
			fmt.Printf("  %s\n", color.CyanString(strings.Join(p.Keywords, ", ")))
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(moodsCmd)
}
