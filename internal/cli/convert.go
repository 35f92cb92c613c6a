package cli

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"github.com/forPelevin/gifcut/internal/domain/validate"
	"github.com/forPelevin/gifcut/internal/pipeline"
	"github.com/forPelevin/gifcut/internal/types"
)

type convertOptions struct {
	start    string
	duration string
	asJSON   bool
}

func newConvertCommand(opts *globalOptions) *cobra.Command {
	var co convertOptions

	cmd := &cobra.Command{
		Use:   "convert <video-url-or-file>",
		Short: "Convert one segment of a video into a GIF",
		Long: "Convert downloads the video behind a watch URL or reads a local video file, " +
			"cuts the requested window and writes the GIF into the output store.",
		Example: "  gifcut convert https://www.youtube.com/watch?v=dQw4w9WgXcQ --start 1:05 --duration 4\n" +
			"  gifcut convert ./clip.mp4 --start 2.5 --duration 3",
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			req, err := co.request(args[0])
			if err != nil {
				return err
			}
			cfg, logger, err := opts.load()
			if err != nil {
				return err
			}
			svc, err := pipeline.New(cfg, logger)
			if err != nil {
				return err
			}

			ctx, cancel := context.WithTimeout(cmd.Context(), cfg.RequestTimeout.Duration)
			defer cancel()
			res, err := svc.Convert(ctx, req)
			if err != nil {
				return err
			}
			return printResult(cmd.OutOrStdout(), cfg, res, co.asJSON)
		},
	}

	cmd.Flags().StringVarP(&co.start, "start", "s", "0", "Segment start, in seconds or [hh:]mm:ss")
	cmd.Flags().StringVarP(&co.duration, "duration", "d", "3", "Segment length in seconds (1-30)")
	cmd.Flags().BoolVar(&co.asJSON, "json", false, "Print the result as JSON")
	return cmd
}

// request builds a conversion request. Arguments naming an existing file are
// treated as uploads; anything else is a remote video reference.
func (co convertOptions) request(arg string) (types.ConversionRequest, error) {
	var fields []types.FieldError
	start, err := validate.ParseTimestamp(co.start)
	if err != nil {
		fields = append(fields, types.FieldError{Field: "startTime", Message: err.Error()})
	}
	dur, err := validate.ParseTimestamp(co.duration)
	if err != nil {
		fields = append(fields, types.FieldError{Field: "duration", Message: err.Error()})
	}
	if len(fields) > 0 {
		return types.ConversionRequest{}, types.InvalidRequest(fields...)
	}

	req := types.ConversionRequest{Start: start, Duration: dur}
	info, err := os.Stat(arg)
	switch {
	case err == nil && info.Mode().IsRegular():
		up, err := readUpload(arg, info.Size())
		if err != nil {
			return types.ConversionRequest{}, err
		}
		req.Source = types.SourceUpload
		req.Upload = up
	case err == nil:
		return types.ConversionRequest{}, types.InvalidRequest(types.FieldError{Field: "file", Message: arg + " is not a regular file"})
	case errors.Is(err, fs.ErrNotExist) || !looksLikePath(arg):
		req.Source = types.SourceRemote
		req.Identifier = arg
	default:
		return types.ConversionRequest{}, types.InternalIO("could not read the input file", err)
	}
	return req, nil
}

func readUpload(path string, size int64) (types.Upload, error) {
	if size > validate.MaxUploadBytes {
		return types.Upload{}, types.InvalidRequest(types.FieldError{
			Field:   "file",
			Message: fmt.Sprintf("file size exceeds maximum of %s", humanize.IBytes(validate.MaxUploadBytes)),
		})
	}
	f, err := os.Open(path)
	if err != nil {
		return types.Upload{}, types.InternalIO("could not read the input file", err)
	}
	defer f.Close()
	b, err := io.ReadAll(io.LimitReader(f, validate.MaxUploadBytes+1))
	if err != nil {
		return types.Upload{}, types.InternalIO("could not read the input file", err)
	}

	return types.Upload{Bytes: b, FileName: filepath.Base(path), MIMEType: validate.MIMETypeFor(path)}, nil
}

func looksLikePath(arg string) bool {
	return strings.ContainsRune(arg, os.PathSeparator) && !strings.Contains(arg, "://")
}

func printResult(out io.Writer, cfg *pipeline.Config, res types.ConversionResult, asJSON bool) error {
	if asJSON {
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		return enc.Encode(res)
	}
	fmt.Fprintf(out, "GIF:    %s\n", filepath.Join(cfg.OutputDir, res.Name))
	fmt.Fprintf(out, "URL:    %s\n", res.PublicPath)
	fmt.Fprintf(out, "Size:   %s\n", humanize.IBytes(uint64(res.ByteSize)))
	fmt.Fprintf(out, "Tier:   %s\n", res.Tier)
	return nil
}
