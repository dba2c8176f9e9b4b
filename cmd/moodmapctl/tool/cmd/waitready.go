package cmd

import (
	"context"
	"fmt"
	"net/http"
	"time"

	v1 "moodmap-go/api/moodmap/v1"

	"github.com/fatih/color"
	"github.com/goccy/go-json"
	"github.com/spf13/cobra"
)

var (
	waitURL      string
	waitTimeout  time.Duration
	waitInterval time.Duration
	waitGeocoder bool
)

// waitreadyCmd 轮询 /status 直到服务就绪（部署编排用）
var waitreadyCmd = &cobra.Command{
	Use:   "waitready",
	Short: "等待 moodmap /status 就绪",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, cancel := context.WithTimeout(cmd.Context(), waitTimeout)
		defer cancel()
		ticker := time.NewTicker(waitInterval)
		defer ticker.Stop()
		for {
			st, err := probeStatus(ctx, waitURL)
			switch {
			case err != nil:
				color.HiBlack("not ready: %v", err)
			case waitGeocoder && st.Geocoder == "open":
				color.Yellow("service up, geocoder circuit open")
			default:
				color.Green("ready: version=%s uptime=%s geocoder=%s", st.Version, st.Uptime, st.Geocoder)
				return nil
			}
			select {
			case <-ctx.Done():
				return fmt.Errorf("waitready 超时：%s", waitURL)
			case <-ticker.C:
			}
		}
	},
}

func probeStatus(ctx context.Context, url string) (*v1.StatusReply, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, err
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("status %d", resp.StatusCode)
	}
	var st v1.StatusReply
	if err := json.NewDecoder(resp.Body).Decode(&st); err != nil {
		return nil, err
	}
	return &st, nil
}

func init() {
	waitreadyCmd.Flags().StringVar(&waitURL, "url", "http://127.0.0.1:8000/status", "就绪探针 URL")
	waitreadyCmd.Flags().DurationVar(&waitTimeout, "timeout", 2*time.Minute, "等待超时")
	waitreadyCmd.Flags().DurationVar(&waitInterval, "interval", 2*time.Second, "轮询间隔")
	waitreadyCmd.Flags().BoolVar(&waitGeocoder, "require-geocoder", false, "熔断器打开时视为未就绪")
	rootCmd.AddCommand(waitreadyCmd)
}
