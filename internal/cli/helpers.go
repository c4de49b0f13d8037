package cli

import (
	"fmt"
	"net/http"

	"github.com/sdmx-io/fmr-client/internal/fileio"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/thoas/go-funk"
)

func markRequired(cmd *cobra.Command, requiredFlags ...string) error {
	for _, flag := range requiredFlags {
		if err := cmd.MarkFlagRequired(flag); err != nil {
			return err
		}
	}

	cmd.Flags().VisitAll(func(f *pflag.Flag) {
		if funk.ContainsString(requiredFlags, f.Name) {
			f.Usage = fmt.Sprintf("%s (required)", f.Usage)
		}
	})

	return nil
}

// requestHeaders merges the typed header flags into the free-form ones.
func requestHeaders(contentType, structure string, extra map[string]string) http.Header {
	headers := http.Header{}
	for key, value := range extra {
		headers.Set(key, value)
	}
	if contentType != "" {
		headers.Set("Content-Type", contentType)
	}
	if structure != "" {
		headers.Set("Structure", structure)
	}
	return headers
}

// writeResult writes body to outputFile, or to stdout when it is empty.
func writeResult(cmd *cobra.Command, outputFile, body string) error {
	if outputFile == "" {
		_, err := fmt.Fprint(cmd.OutOrStdout(), body)
		return err
	}
	if err := fileio.NewWriter().WriteFile(outputFile, []byte(body)); err != nil {
		return fmt.Errorf("writing %s: %w", outputFile, err)
	}
	fmt.Fprintf(cmd.ErrOrStderr(), "Result written to %s\n", outputFile)
	return nil
}

func checkDataFile(filePath string) error {
	if err := fileio.NewReader().CheckPathExists(filePath); err != nil {
		return fmt.Errorf("data file %s: %w", filePath, err)
	}
	return nil
}
