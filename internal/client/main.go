package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"cloud.google.com/go/storage"

	"github.com/ntdkhiem/huffman-compression-platform/internal/common"
)

var errJobRejected = errors.New("job rejected by manager")

type Application struct {
	HTTPClient   *http.Client
	ManagerURL   string
	GCSClient    common.GCSClientInterface
	CTX          *context.Context
	Bucket       string
	PollInterval time.Duration
	GCSTimeout   time.Duration
}

type jobStatus struct {
	ID         string `json:"id"`
	ResultPath string `json:"result_path"`
	Status     string `json:"status"`
}

// submit uploads path to the manager and returns the ID of the new job.
// The multipart body is streamed through a pipe so large files are never
// held in memory.
func (app *Application) submit(ctx context.Context, path string, decode bool) (string, error) {
	file, err := os.Open(path)
	if err != nil {
		return "", err
	}
	defer file.Close()

	pr, pw := io.Pipe()
	form := multipart.NewWriter(pw)
	go func() {
		part, err := form.CreateFormFile("file", filepath.Base(path))
		if err == nil {
			_, err = io.Copy(part, file)
		}
		if err == nil {
			err = form.Close()
		}
		pw.CloseWithError(err)
	}()

	endpoint := "/compress"
	if decode {
		endpoint = "/decompress"
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, app.ManagerURL+endpoint, pr)
	if err != nil {
		pr.Close()
		return "", err
	}
	req.Header.Set("Content-Type", form.FormDataContentType())

	resp, err := app.HTTPClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("cannot reach manager: %w", err)
	}
	defer resp.Body.Close()

	var body struct {
		JobID string `json:"job_id"`
		Error string `json:"error"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return "", fmt.Errorf("cannot decode manager response (status %d): %w", resp.StatusCode, err)
	}
	if resp.StatusCode != http.StatusAccepted {
		return "", fmt.Errorf("%w: %s (status %d)", errJobRejected, body.Error, resp.StatusCode)
	}
	return body.JobID, nil
}

// status fetches the current state of a job.
func (app *Application) status(ctx context.Context, jobID string) (jobStatus, error) {
	var js jobStatus
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, app.ManagerURL+"/jobs/"+jobID, nil)
	if err != nil {
		return js, err
	}
	resp, err := app.HTTPClient.Do(req)
	if err != nil {
		return js, fmt.Errorf("cannot reach manager: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return js, fmt.Errorf("job %s: unexpected status %d", jobID, resp.StatusCode)
	}
	if err := json.NewDecoder(resp.Body).Decode(&js); err != nil {
		return js, fmt.Errorf("cannot decode job status: %w", err)
	}
	return js, nil
}

// wait polls the manager until the job result exists or ctx is done.
func (app *Application) wait(ctx context.Context, jobID string) (jobStatus, error) {
	ticker := time.NewTicker(app.PollInterval)
	defer ticker.Stop()
	for {
		js, err := app.status(ctx, jobID)
		if err != nil {
			return js, err
		}
		if js.Status == "done" {
			return js, nil
		}
		slog.Debug("Job still pending", "job", jobID)

		select {
		case <-ctx.Done():
			return js, fmt.Errorf("job %s: %w", jobID, ctx.Err())
		case <-ticker.C:
		}
	}
}

// download copies the result object of a finished job to out.
func (app *Application) download(js jobStatus, out string) error {
	ctx, cancel := context.WithTimeout(*app.CTX, app.GCSTimeout)
	defer cancel()

	rc, err := app.GCSClient.NewObjectReader(ctx, app.Bucket, js.ResultPath)
	if err != nil {
		return fmt.Errorf("cannot open result %q: %w", js.ResultPath, err)
	}
	defer rc.Close()

	f, err := os.Create(out)
	if err != nil {
		return err
	}
	if _, err := io.Copy(f, rc); err != nil {
		f.Close()
		return fmt.Errorf("cannot download result %q: %w", js.ResultPath, err)
	}
	return f.Close()
}

// run submits path and, when out is not empty, waits for the result and
// downloads it.
func (app *Application) run(path string, decode bool, out string, timeout time.Duration) error {
	ctx, cancel := context.WithTimeout(*app.CTX, timeout)
	defer cancel()

	jobID, err := app.submit(ctx, path, decode)
	if err != nil {
		return err
	}
	slog.Info("Submitted job", "job", jobID, "file", path, "decode", decode)
	if out == "" {
		return nil
	}

	js, err := app.wait(ctx, jobID)
	if err != nil {
		return err
	}
	if err := app.download(js, out); err != nil {
		return err
	}
	slog.Info("Downloaded job result", "job", jobID, "output", out)
	return nil
}

func main() {
	decodeFlag := flag.Bool("decode", false, "submit a decompress job")
	waitFlag := flag.Bool("wait", true, "wait for the job and download its result")
	outputFlag := flag.String("output", "", "where to store the result (default derived from the input name)")
	timeoutFlag := flag.Duration("timeout", 10*time.Minute, "how long to wait for the job")
	flag.Parse()

	// initialize logging system
	var programLevel = new(slog.LevelVar) // Info by default
	isDev, err := strconv.ParseBool(os.Getenv("DEVELOPMENT_MODE"))
	if err == nil && isDev {
		programLevel.Set(slog.LevelDebug)
	}
	logger := slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{Level: programLevel}))
	slog.SetDefault(logger)

	if flag.NArg() != 1 {
		slog.Error("Expected exactly one file to submit")
		os.Exit(2)
	}
	path := flag.Arg(0)

	managerURL := os.Getenv("MANAGER_URL")
	if managerURL == "" {
		managerURL = "http://localhost:8081"
	}
	ctx := context.Background()

	app := Application{
		HTTPClient:   &http.Client{},
		ManagerURL:   managerURL,
		CTX:          &ctx,
		Bucket:       os.Getenv("GCS_BUCKET"),
		PollInterval: 2 * time.Second,
		GCSTimeout:   50 * time.Second,
	}

	out := ""
	if *waitFlag {
		out = *outputFlag
		if out == "" {
			out = common.OutputName(path, *decodeFlag)
		}

		GCSClient, err := storage.NewClient(ctx)
		if err != nil {
			slog.Error("Cannot create new client for GCS", "error", err)
			os.Exit(1)
		}
		defer GCSClient.Close()
		app.GCSClient = &common.RealGCSClient{Client: GCSClient}
	}

	if err := app.run(path, *decodeFlag, out, *timeoutFlag); err != nil {
		slog.Error("Job failed", "file", path, "error", err)
		os.Exit(1)
	}
}
