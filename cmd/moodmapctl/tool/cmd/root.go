package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var (
	cfgPath  string
	logLevel string
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "moodmapctl",
	Short: "MoodMap 命令行工具",
	Long:  `moodmapctl 在本地跑一次心情推荐、手动定位，或等待服务就绪。`,
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&cfgPath, "conf", "c", "", "config path (directory or file)，为空时使用内置默认值")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "warn", "日志级别")
}

// Execute runs the root command
func Execute() error {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		return err
	}
	return nil
}
