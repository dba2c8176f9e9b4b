package cmd

import (
	"context"
	"fmt"
	"os"
	"strings"
	"time"

	"moodmap-go/internal/biz"
	"moodmap-go/pkg/geo"

	"github.com/fatih/color"
	"github.com/goccy/go-json"
	"github.com/spf13/cobra"
)

var (
	recLat      float64
	recLng      float64
	recAccuracy float64
	recMood     string
	recPlace    string
	recJSON     bool
	recTimeout  time.Duration
)

// recommendCmd 在本地跑一个完整的推荐周期
var recommendCmd = &cobra.Command{
	Use:   "recommend",
	Short: "按坐标或地名跑一次心情推荐",
	RunE: func(cmd *cobra.Command, args []string) error {
		rt, err := newRuntime()
		if err != nil {
			return err
		}
		defer rt.cleanup()

		ctx, cancel := context.WithTimeout(cmd.Context(), recTimeout)
		defer cancel()

		var acc *float64
		if cmd.Flags().Changed("accuracy") {
			acc = &recAccuracy
		}
		var src biz.LocationSource
		if recPlace == "" {
			if !cmd.Flags().Changed("lat") || !cmd.Flags().Changed("lng") {
				return fmt.Errorf("需要 --lat/--lng 或 --place")
			}
			reading, err := geo.NewLocationReading(recLat, recLng, acc, time.Now())
			if err != nil {
				return err
			}
			src = biz.StaticSource{Reading: reading}
		}

		tracker := biz.NewLocationTracker("cli", src, rt.search, nil, rt.logger,
			biz.WithPositionTimeout(rt.conf.Recommend.GetPositionTimeout()),
			biz.WithRadius(rt.recommend.SearchRadiusKm),
		)
		var reading geo.LocationReading
		if recPlace != "" {
			reading, err = tracker.ResolveManual(ctx, recPlace)
		} else {
			reading, _, err = tracker.Refresh(ctx)
		}
		if err != nil {
			return err
		}

		rs, err := rt.recommend.Aggregate(ctx, biz.CycleInput{Reading: reading, Profile: rt.catalog.ProfileFor(recMood)})
		if err != nil {
			return err
		}
		if recJSON {
			enc := json.NewEncoder(os.Stdout)
			enc.SetIndent("", "  ")
			return enc.Encode(rs)
		}
		printResultSet(tracker.Status(), rs)
		return nil
	},
}

func printResultSet(st biz.LocationStatus, rs *biz.ResultSet) {
	bold := color.New(color.Bold)
	bold.Printf("%s · %s\n", rs.Mood, rs.Reason)
	fmt.Printf("center %s  radius %.0f km\n", rs.Center, rs.RadiusKm)
	color.Cyan(st.Message)
	if st.Note != "" {
		color.Yellow(st.Note)
	}
	if rs.Fallback {
		color.Yellow("No places found nearby, showing suggested spots around you.")
	}
	for i, p := range rs.Places {
		name := p.Name
		if p.IsFallback {
			name = color.YellowString(name)
		} else {
			name = color.GreenString(name)
		}
		fmt.Printf("%2d. %s  %.2f km\n", i+1, name, p.DistanceKm)
		if p.Description != "" && !strings.EqualFold(p.Description, p.Name) {
			fmt.Printf("    %s\n", color.HiBlackString(p.Description))
		}
	}
	fmt.Printf("queries %d  raw %d  duplicates %d  out of range %d\n",
		rs.Stats.Queries, rs.Stats.RawHits, rs.Stats.Duplicates, rs.Stats.OutOfRange)
}

func init() {
	recommendCmd.Flags().Float64Var(&recLat, "lat", 0, "纬度")
	recommendCmd.Flags().Float64Var(&recLng, "lng", 0, "经度")
	recommendCmd.Flags().Float64Var(&recAccuracy, "accuracy", 0, "定位精度（米），不设置表示未知")
	recommendCmd.Flags().StringVar(&recMood, "mood", "", "心情：Happy|Sad|Angry|Calm")
	recommendCmd.Flags().StringVar(&recPlace, "place", "", "手动输入的城市、地址或地标")
	recommendCmd.Flags().BoolVar(&recJSON, "json", false, "以 JSON 输出")
	recommendCmd.Flags().DurationVar(&recTimeout, "timeout", 2*time.Minute, "整体超时")
	rootCmd.AddCommand(recommendCmd)
}
