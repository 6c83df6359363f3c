package commands

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"sort"

	"github.com/spf13/cobra"
)

var publishCmd = &cobra.Command{
	Use:   "publish [files...]",
	Short: "Upload output files to S3-compatible storage",
	Long:  "Upload the given files, or every .json, .csv and .xlsx file in OUTPUT_DIR, under S3_PREFIX.",
	RunE: func(cmd *cobra.Command, args []string) error {
		uris, err := current.runPublish(cmd.Context(), args)
		for _, uri := range uris {
			fmt.Fprintln(current.out, uri)
		}
		return err
	},
}

func init() {
	rootCmd.AddCommand(publishCmd)
}

// outputFiles lists the publishable files in dir
func outputFiles(dir string) ([]string, error) {
	var files []string
	for _, pattern := range []string{"*.json", "*.csv", "*.xlsx"} {
		matches, err := filepath.Glob(filepath.Join(dir, pattern))
		if err != nil {
			return nil, err
		}
		files = append(files, matches...)
	}
	sort.Strings(files)
	return files, nil
}

func (a *app) runPublish(ctx context.Context, files []string) ([]string, error) {
	publisher, err := a.newPublisher(ctx)
	if err != nil {
		return nil, err
	}
	if publisher == nil {
		return nil, errors.New("S3_BUCKET is not configured")
	}

	if len(files) == 0 {
		if files, err = outputFiles(a.cfg.OutputDir); err != nil {
			return nil, err
		}
	}
	if len(files) == 0 {
		a.logger.Warn("Nothing to publish in %s", a.cfg.OutputDir)
		return nil, nil
	}
	return publisher.Publish(ctx, files)
}
