// Package main 信号雷达批处理命令行
package main

import (
	"os"

	"github.com/spf13/cobra"
)

var (
	// cfgPath 配置文件路径
	cfgPath string
	// metricsAddr 为空时不暴露 /metrics
	metricsAddr string

	version = "dev"
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:   "signal_radar",
	Short: "News to business signal pipeline",
	Long: `signal_radar crawls news, extracts business signals with an LLM,
attributes them to customer accounts and writes a daily radar report.

Each stage can be triggered once from the command line or run on its
cron schedule with "signal_radar schedule".`,
	Version:       version,
	SilenceUsage:  true,
	SilenceErrors: false,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgPath, "config", "configs/config.yaml", "config file path")
	rootCmd.PersistentFlags().StringVar(&metricsAddr, "metrics-addr", "", "serve prometheus metrics on this address, eg :9102")

	for _, name := range jobNames {
		rootCmd.AddCommand(newJobCmd(name))
	}
	rootCmd.AddCommand(runAllCmd, scheduleCmd, migrateCmd)
}
