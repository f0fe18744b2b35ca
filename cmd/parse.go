package main

import (
	"encoding/json"
	"io"
	"net/http"
	"os"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"

	"github.com/avgeo/notam-studio/internal/ingest"
	"github.com/avgeo/notam-studio/internal/ocr"
	"github.com/avgeo/notam-studio/internal/render"
	"github.com/avgeo/notam-studio/internal/store"
	"github.com/avgeo/notam-studio/pkg/parseapi"
)

var (
	parseImagePath string
	parseGeoJSON   bool
)

var parseCmd = &cobra.Command{
	Use:   "parse [file]",
	Short: "Parse a notice from a file or stdin and print the records",
	Long:  "One-shot pipeline run without the server: reads notice text from the given file (or stdin), or recognizes text from an image with --image, parses it, and prints the resulting records as JSON. With --geojson the derived overlay scene is printed instead.",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		st := store.New()

		parser := parseapi.NewClient(cfg.Parser.BaseURL,
			parseapi.WithHTTPClient(&http.Client{Timeout: cfg.Parser.Timeout()}))
		recognizer, err := ocr.NewRecognizer(cfg.OCR)
		if err != nil {
			return err
		}
		pipeline := ingest.New(parser, recognizer, st)

		var out any
		switch {
		case parseImagePath != "":
			image, err := os.ReadFile(parseImagePath)
			if err != nil {
				return eris.Wrapf(err, "read image %s", parseImagePath)
			}
			text, created, err := pipeline.IngestImage(cmd.Context(), image)
			if err != nil {
				return err
			}
			out = map[string]any{"text": text, "records": created}
		default:
			text, err := readNotice(args)
			if err != nil {
				return err
			}
			created, err := pipeline.IngestText(cmd.Context(), text)
			if err != nil {
				return err
			}
			out = map[string]any{"records": created}
		}

		if parseGeoJSON {
			out = render.FeatureCollection(render.Derive(st.All()))
		}

		enc := json.NewEncoder(cmd.OutOrStdout())
		enc.SetIndent("", "  ")
		return enc.Encode(out)
	},
}

func readNotice(args []string) (string, error) {
	if len(args) == 1 {
		data, err := os.ReadFile(args[0])
		if err != nil {
			return "", eris.Wrapf(err, "read notice %s", args[0])
		}
		return string(data), nil
	}
	data, err := io.ReadAll(os.Stdin)
	if err != nil {
		return "", eris.Wrap(err, "read stdin")
	}
	return string(data), nil
}

func init() {
	parseCmd.Flags().StringVar(&parseImagePath, "image", "", "recognize text from this image instead of reading text")
	parseCmd.Flags().BoolVar(&parseGeoJSON, "geojson", false, "print the derived overlay scene as GeoJSON")
	rootCmd.AddCommand(parseCmd)
}
