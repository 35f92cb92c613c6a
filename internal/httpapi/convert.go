package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime"
	"net/http"
	"strings"

	"github.com/forPelevin/gifcut/internal/domain/validate"
	"github.com/forPelevin/gifcut/internal/types"
)

const (
	maxJSONBody = 64 << 10

	// Multipart framing and the text fields ride on top of the file.
	multipartOverhead = 1 << 20
	multipartMemory   = 32 << 20
)

type convertJSON struct {
	Identifier string   `json:"identifier"`
	VideoID    string   `json:"videoId"`
	StartTime  *float64 `json:"startTime"`
	Duration   *float64 `json:"duration"`
}

type convertResponse struct {
	Success bool `json:"success"`
	types.ConversionResult
}

func (s *Server) convert(w http.ResponseWriter, r *http.Request) {
	req, err := s.parseConvert(w, r)
	if err != nil {
		writeError(w, err)
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), s.cfg.RequestTimeout)
	defer cancel()

	res, err := s.conv.Convert(ctx, req)
	if s.sweeper != nil {
		s.sweeper.Trigger()
	}
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSONStatus(w, http.StatusOK, convertResponse{Success: true, ConversionResult: res})
}

func (s *Server) parseConvert(w http.ResponseWriter, r *http.Request) (types.ConversionRequest, error) {
	mt, _, _ := mime.ParseMediaType(r.Header.Get("Content-Type"))
	switch mt {
	case "multipart/form-data":
		return parseUpload(w, r)
	case "application/json", "":
		return parseRemote(w, r)
	default:
		return types.ConversionRequest{}, types.InvalidRequest(types.FieldError{
			Field:   "body",
			Message: fmt.Sprintf("unsupported content type %q", mt),
		})
	}
}

func parseRemote(w http.ResponseWriter, r *http.Request) (types.ConversionRequest, error) {
	var body convertJSON
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxJSONBody))
	if err := dec.Decode(&body); err != nil {
		return types.ConversionRequest{}, types.InvalidRequest(types.FieldError{Field: "body", Message: "request body must be a JSON object"})
	}

	id := strings.TrimSpace(body.Identifier)
	if id == "" {
		id = strings.TrimSpace(body.VideoID)
	}
	req := types.ConversionRequest{Source: types.SourceRemote, Identifier: id}

	var fields []types.FieldError
	if body.StartTime == nil {
		fields = append(fields, types.FieldError{Field: "startTime", Message: "startTime is required"})
	} else {
		req.Start = *body.StartTime
	}
	if body.Duration == nil {
		fields = append(fields, types.FieldError{Field: "duration", Message: "duration is required"})
	} else {
		req.Duration = *body.Duration
	}
	if len(fields) > 0 {
		return req, types.InvalidRequest(fields...)
	}
	return req, nil
}

func parseUpload(w http.ResponseWriter, r *http.Request) (types.ConversionRequest, error) {
	tooLarge := types.InvalidRequest(types.FieldError{
		Field:   "file",
		Message: fmt.Sprintf("file exceeds the %d MiB limit", validate.MaxUploadBytes>>20),
	})

	r.Body = http.MaxBytesReader(w, r.Body, validate.MaxUploadBytes+multipartOverhead)
	if err := r.ParseMultipartForm(multipartMemory); err != nil {
		var mbe *http.MaxBytesError
		if errors.As(err, &mbe) {
			return types.ConversionRequest{}, tooLarge
		}
		return types.ConversionRequest{}, types.InvalidRequest(types.FieldError{Field: "body", Message: "malformed multipart body"})
	}
	defer func() { _ = r.MultipartForm.RemoveAll() }()

	req := types.ConversionRequest{Source: types.SourceUpload}
	var fields []types.FieldError

	file, hdr, err := r.FormFile("file")
	if err != nil {
		fields = append(fields, types.FieldError{Field: "file", Message: "file is required"})
	} else {
		defer file.Close()
		b, err := io.ReadAll(io.LimitReader(file, validate.MaxUploadBytes+1))
		if err != nil {
			return req, types.InternalIO("read upload", err)
		}
		if len(b) > validate.MaxUploadBytes {
			return req, tooLarge
		}
		req.Upload = types.Upload{
			Bytes:    b,
			FileName: hdr.Filename,
			MIMEType: hdr.Header.Get("Content-Type"),
		}
	}

	if v, err := formSeconds(r, "startTime"); err != nil {
		fields = append(fields, *err)
	} else {
		req.Start = v
	}
	if v, err := formSeconds(r, "duration"); err != nil {
		fields = append(fields, *err)
	} else {
		req.Duration = v
	}
	if len(fields) > 0 {
		return req, types.InvalidRequest(fields...)
	}
	return req, nil
}

// formSeconds reads a form field given as seconds or as MM:SS / HH:MM:SS.
func formSeconds(r *http.Request, field string) (float64, *types.FieldError) {
	raw := strings.TrimSpace(r.FormValue(field))
	if raw == "" {
		return 0, &types.FieldError{Field: field, Message: field + " is required"}
	}
	v, err := validate.ParseTimestamp(raw)
	if err != nil {
		return 0, &types.FieldError{Field: field, Message: field + " must be a number of seconds"}
	}
	return v, nil
}

func (s *Server) describe(w http.ResponseWriter, _ *http.Request) {
	endpoints := map[string]string{
		"POST /api/convert": "convert a video segment to a GIF",
	}
	endpoints["GET "+s.cfg.PublicPrefix+"/{name}"] = "download a produced GIF"

	accepts := []map[string]any{
		{
			"contentType": "application/json",
			"fields":      map[string]string{"identifier": "video URL or id", "startTime": "seconds >= 0", "duration": "seconds in [1,30]"},
		},
		{
			"contentType": "multipart/form-data",
			"fields":      map[string]string{"file": "video file", "startTime": "seconds >= 0", "duration": "seconds in [1,30]"},
		},
	}
	limits := map[string]any{
		"minDuration":       validate.MinDuration,
		"maxDuration":       validate.MaxDuration,
		"maxUploadBytes":    validate.MaxUploadBytes,
		"maxSourceSeconds":  validate.MaxSourceSeconds,
		"allowedExtensions": validate.AllowedExtensions(),
	}

	writeJSONStatus(w, http.StatusOK, map[string]any{
		"name":      "gifcut",
		"version":   s.cfg.Version,
		"endpoints": endpoints,
		"accepts":   accepts,
		"limits":    limits,
	})
}
