package main

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"os"
	"strconv"
	"strings"
	"time"

	"cloud.google.com/go/pubsub/v2"
	"cloud.google.com/go/storage"
	"github.com/cespare/xxhash/v2"
	"github.com/google/uuid"

	"github.com/ntdkhiem/huffman-compression-platform/compression"
	"github.com/ntdkhiem/huffman-compression-platform/internal/common"
	"github.com/ntdkhiem/huffman-compression-platform/internal/jobstore"
)

type Application struct {
	GCSClient         common.GCSClientInterface
	PUBSUBClient      common.PubSubClientInterface
	Jobs              *jobstore.Store
	CTX               *context.Context
	Bucket            string
	CompressTopicID   string
	DecompressTopicID string
	MaxUploadSize     int64
	GCSTimeout        time.Duration
}

type jobStatusResponse struct {
	jobstore.Job
	Status string `json:"status"`
}

func (app *Application) routes() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/compress", app.compressHandler)
	mux.HandleFunc("/decompress", app.decompressHandler)
	mux.HandleFunc("/jobs/{id}", app.jobHandler)
	return mux
}

// formFile applies the upload size limit and extracts the "file" form field.
// It writes the error response itself and reports false on failure.
func (app *Application) formFile(w http.ResponseWriter, r *http.Request) (io.ReadCloser, string, bool) {
	r.Body = http.MaxBytesReader(w, r.Body, app.MaxUploadSize)

	file, header, err := r.FormFile("file")
	if err != nil {
		slog.Error("Failed to get file from form", "error", err)
		// This error is triggered when MaxBytesReader limit is exceeded
		if strings.Contains(err.Error(), "request body too large") {
			common.WriteError(w, "File exceeds size limit", http.StatusRequestEntityTooLarge)
			return nil, "", false
		}
		common.WriteError(w, "Failed to read file: "+err.Error(), http.StatusBadRequest)
		return nil, "", false
	}
	return file, header.Filename, true
}

func (app *Application) compressHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		common.WriteError(w, "Only POST method allowed", http.StatusMethodNotAllowed)
		return
	}

	file, filename, ok := app.formFile(w, r)
	if !ok {
		return
	}
	defer file.Close()

	slog.Info("Processing a request for compressing")

	jobID := uuid.New().String()
	slog.Debug("Creating new job", "job", jobID, "file", filename)

	ctx, cancel := context.WithTimeout(*app.CTX, app.GCSTimeout)
	defer cancel()

	// count byte frequencies and hash the content while streaming it to GCS
	var freqTable compression.FrequencyTable
	digest := xxhash.New()
	teeReader := io.TeeReader(file, io.MultiWriter(&freqTable, digest))

	originalFilePath := common.OriginalFilePath(jobID, filename)
	wc := app.GCSClient.NewObjectWriter(ctx, app.Bucket, originalFilePath)
	size, err := io.Copy(wc, teeReader)
	if err != nil {
		wc.Close()
		slog.Error("Failed to stream data to GCS", "job", jobID, "error", err)
		if errors.Is(err, compression.ErrInputTooLarge) {
			common.WriteError(w, "File exceeds size limit", http.StatusRequestEntityTooLarge)
			return
		}
		common.WriteError(w, "Internal server error", http.StatusInternalServerError)
		return
	}
	if err := wc.Close(); err != nil {
		slog.Error("Failed to close data stream to GCS", "job", jobID, "error", err)
		common.WriteError(w, "Internal server error", http.StatusInternalServerError)
		return
	}
	slog.Debug("Uploaded original file to GCS", "job", jobID, "file", filename, "bytes", size)

	freqTableBytes, err := json.Marshal(freqTable)
	if err != nil {
		slog.Error("Failed to marshal frequency table", "job", jobID, "error", err)
		common.WriteError(w, "Internal server error", http.StatusInternalServerError)
		return
	}

	freqTablePath := common.FreqTablePath(jobID)
	wc = app.GCSClient.NewObjectWriter(ctx, app.Bucket, freqTablePath)
	if _, err := wc.Write(freqTableBytes); err != nil {
		wc.Close()
		slog.Error("Failed to stream frequency table to GCS", "job", jobID, "error", err)
		common.WriteError(w, "Internal server error", http.StatusInternalServerError)
		return
	}
	if err := wc.Close(); err != nil {
		slog.Error("Failed to close frequency table data stream to GCS", "job", jobID, "error", err)
		common.WriteError(w, "Internal server error", http.StatusInternalServerError)
		return
	}
	slog.Debug("Uploaded frequency table to GCS", "job", jobID, "distinct", freqTable.Distinct)

	job := jobstore.Job{
		ID:         jobID,
		Kind:       jobstore.KindCompress,
		Filename:   filename,
		Size:       size,
		Checksum:   digest.Sum64(),
		InputPath:  originalFilePath,
		ResultPath: common.CompressedResultPath(jobID),
		CreatedAt:  time.Now().UTC(),
	}
	if err := app.Jobs.Put(job); err != nil {
		slog.Error("Failed to record job", "job", jobID, "error", err)
		common.WriteError(w, "Internal server error", http.StatusInternalServerError)
		return
	}

	message := common.CompressedMsgSchema{
		UID:              jobID,
		OriginalFilePath: originalFilePath,
		FreqTablePath:    freqTablePath,
		Checksum:         job.Checksum,
	}
	if !app.publish(w, jobID, app.CompressTopicID, message) {
		return
	}

	common.WriteJSON(w, map[string]string{"job_id": jobID}, http.StatusAccepted)
}

func (app *Application) decompressHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		common.WriteError(w, "Only POST method allowed", http.StatusMethodNotAllowed)
		return
	}

	file, filename, ok := app.formFile(w, r)
	if !ok {
		return
	}
	defer file.Close()

	if !strings.HasSuffix(filename, common.CompressedFileExt) {
		common.WriteError(w, "Wrong file format", http.StatusBadRequest)
		return
	}

	slog.Info("Processing a request for decompressing")

	jobID := uuid.New().String()
	slog.Debug("Creating new job", "job", jobID, "file", filename)

	ctx, cancel := context.WithTimeout(*app.CTX, app.GCSTimeout)
	defer cancel()

	compressedFilePath := common.UploadedFilePath(jobID, filename)
	wc := app.GCSClient.NewObjectWriter(ctx, app.Bucket, compressedFilePath)
	size, err := io.Copy(wc, file)
	if err != nil {
		wc.Close()
		slog.Error("Failed to stream compressed data to GCS", "job", jobID, "error", err)
		common.WriteError(w, "Internal server error", http.StatusInternalServerError)
		return
	}
	if err := wc.Close(); err != nil {
		slog.Error("Failed to close data stream to GCS", "job", jobID, "error", err)
		common.WriteError(w, "Internal server error", http.StatusInternalServerError)
		return
	}
	slog.Debug("Uploaded compressed file to GCS", "job", jobID, "file", filename, "bytes", size)

	job := jobstore.Job{
		ID:         jobID,
		Kind:       jobstore.KindDecompress,
		Filename:   filename,
		Size:       size,
		InputPath:  compressedFilePath,
		ResultPath: common.DecompressedResultPath(jobID),
		CreatedAt:  time.Now().UTC(),
	}
	if err := app.Jobs.Put(job); err != nil {
		slog.Error("Failed to record job", "job", jobID, "error", err)
		common.WriteError(w, "Internal server error", http.StatusInternalServerError)
		return
	}

	message := common.DecompressedMsgSchema{
		UID:                jobID,
		CompressedFilePath: compressedFilePath,
	}
	if !app.publish(w, jobID, app.DecompressTopicID, message) {
		return
	}

	common.WriteJSON(w, map[string]string{"job_id": jobID}, http.StatusAccepted)
}

// publish sends message to topicID. A new publisher is used every time to
// avoid sending messages in batch.
// TODO: make this more tolerable to message delivery failures.
func (app *Application) publish(w http.ResponseWriter, jobID, topicID string, message any) bool {
	messageBytes, err := json.Marshal(message)
	if err != nil {
		slog.Error("Failed to marshal MQ message", "job", jobID, "error", err)
		common.WriteError(w, "Internal server error", http.StatusInternalServerError)
		return false
	}

	returnedMessageID, err := app.PUBSUBClient.PublishMessage(*app.CTX, topicID, &pubsub.Message{
		Data: messageBytes,
	})
	if err != nil {
		slog.Error("Failed to send MQ message", "job", jobID, "error", err)
		common.WriteError(w, "Internal server error", http.StatusInternalServerError)
		return false
	}
	slog.Debug("Sent message to Pub/Sub", "job", jobID, "server_generated_message_id", returnedMessageID)
	return true
}

func (app *Application) jobHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		common.WriteError(w, "Only GET method allowed", http.StatusMethodNotAllowed)
		return
	}

	jobID := r.PathValue("id")
	job, err := app.Jobs.Get(jobID)
	if errors.Is(err, jobstore.ErrNotFound) {
		common.WriteError(w, "Job not found", http.StatusNotFound)
		return
	}
	if err != nil {
		slog.Error("Failed to load job", "job", jobID, "error", err)
		common.WriteError(w, "Internal server error", http.StatusInternalServerError)
		return
	}

	ctx, cancel := context.WithTimeout(*app.CTX, app.GCSTimeout)
	defer cancel()

	done, err := app.GCSClient.ObjectExists(ctx, app.Bucket, job.ResultPath)
	if err != nil {
		slog.Error("Failed to look up job result", "job", jobID, "error", err)
		common.WriteError(w, "Internal server error", http.StatusInternalServerError)
		return
	}

	status := "pending"
	if done {
		status = "done"
	}
	common.WriteJSON(w, jobStatusResponse{Job: job, Status: status}, http.StatusOK)
}

func main() {
	// initialize logging system
	var programLevel = new(slog.LevelVar) // Info by default
	developmentMode := os.Getenv("DEVELOPMENT_MODE")
	isDev, err := strconv.ParseBool(developmentMode)
	if err == nil && isDev {
		programLevel.Set(slog.LevelDebug)
	}
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: programLevel}))
	slog.SetDefault(logger)

	// initialize GCP services
	projectID := os.Getenv("GCP_PROJECT_ID")
	compressTopicID := os.Getenv("PUBSUB_COMPRESS_TOPIC_ID")
	decompressTopicID := os.Getenv("PUBSUB_DECOMPRESS_TOPIC_ID")
	bucket := os.Getenv("GCS_BUCKET")
	jobStoreDir := os.Getenv("JOBSTORE_DIR")
	if jobStoreDir == "" {
		jobStoreDir = "jobs.db"
	}
	ctx := context.Background()

	GCSClient, err := storage.NewClient(ctx)
	if err != nil {
		slog.Error("Cannot create new client for GCS", "error", err)
		return
	}
	defer GCSClient.Close()
	slog.Debug("Initialized a GCS client.")

	PUBSUBClient, err := pubsub.NewClient(ctx, projectID)
	if err != nil {
		slog.Error("Cannot create new client for Pub/Sub", "error", err)
		return
	}
	defer PUBSUBClient.Close()
	slog.Debug("Initialized a Pub/Sub client.")

	jobs, err := jobstore.Open(jobStoreDir, nil)
	if err != nil {
		slog.Error("Cannot open job store", "error", err)
		return
	}
	defer jobs.Close()
	slog.Debug("Opened job store.", "path", jobStoreDir)

	realGCS := &common.RealGCSClient{Client: GCSClient}
	realPubSub := &common.RealPubSubClient{Client: PUBSUBClient}

	app := Application{
		GCSClient:         realGCS,
		PUBSUBClient:      realPubSub,
		Jobs:              jobs,
		CTX:               &ctx,
		Bucket:            bucket,
		CompressTopicID:   compressTopicID,
		DecompressTopicID: decompressTopicID,
		MaxUploadSize:     1 << 30, // 1GB
		GCSTimeout:        50 * time.Second,
	}

	slog.Info("Listening on localhost:8081...")
	if err := http.ListenAndServe(":8081", app.routes()); err != nil {
		slog.Error("Server stopped", "error", err)
	}
}
