package cli

import (
	"fmt"
	"sort"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/placescope/placescope/internal/domain/place"
	"github.com/placescope/placescope/internal/infrastructure/monitoring/logging"
	"github.com/placescope/placescope/internal/infrastructure/placesapi"
	"github.com/placescope/placescope/pkg/errors"
)

// NewFetchCmd creates the fetch command, a one-shot dataset pull that reports
// what the normalizer would accept without starting the service.
func NewFetchCmd(opts *rootOptions) *cobra.Command {
	var url string

	cmd := &cobra.Command{
		Use:   "fetch",
		Short: "Fetch the places dataset once and report normalization counts",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runFetch(cmd, opts, url)
		},
	}
	cmd.Flags().StringVar(&url, "url", "", "places dataset URL (overrides sources.places_url)")
	return cmd
}

func runFetch(cmd *cobra.Command, opts *rootOptions, url string) error {
	cfg, err := loadConfig(opts.configPath)
	if err != nil {
		return err
	}
	if url != "" {
		cfg.Sources.PlacesURL = url
	}
	if cfg.Sources.PlacesURL == "" {
		return errors.New(errors.ErrCodeBadRequest,
			"no places source: pass --url or set sources.places_url")
	}

	nop := logging.NewNopLogger()
	normalizer := place.NewNormalizer(cfg.Dataset.MaxRecords, nop)
	client := placesapi.NewClient(placesapi.Config{
		PlacesURL: cfg.Sources.PlacesURL,
		Timeout:   cfg.Sources.Timeout,
		UserAgent: cfg.Sources.UserAgent,
	}, normalizer, nop)

	result, err := client.FetchDataset(cmd.Context())
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "source:    %s\n", cfg.Sources.PlacesURL)
	fmt.Fprintf(out, "records:   %d\n", len(result.Records))
	fmt.Fprintf(out, "rejected:  %d\n", result.Rejected)
	fmt.Fprintf(out, "districts: %d\n", len(result.DistrictLabels))

	if len(result.DistrictLabels) > 0 {
		fmt.Fprint(out, "\n", FormatTable([]string{"DISTRICT", "LABEL", "PLACES"}, districtRows(result)))
	}
	return nil
}

func districtRows(result place.Result) [][]string {
	counts := make(map[string]int, len(result.DistrictLabels))
	for _, r := range result.Records {
		counts[r.District]++
	}

	keys := make([]string, 0, len(result.DistrictLabels))
	for key := range result.DistrictLabels {
		keys = append(keys, key)
	}
	sort.Strings(keys)

	rows := make([][]string, 0, len(keys))
	for _, key := range keys {
		rows = append(rows, []string{key, result.DistrictLabels[key], strconv.Itoa(counts[key])})
	}
	return rows
}
