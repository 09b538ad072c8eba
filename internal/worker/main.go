package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"io"
	"log/slog"
	"os"
	"strconv"
	"time"

	"cloud.google.com/go/pubsub/v2"
	"cloud.google.com/go/storage"
	"github.com/cespare/xxhash/v2"

	"github.com/ntdkhiem/huffman-compression-platform/compression"
	"github.com/ntdkhiem/huffman-compression-platform/internal/common"
)

var errChecksumMismatch = errors.New("checksum mismatch")

type Application struct {
	GCSClient  common.GCSClientInterface
	CTX        *context.Context
	Bucket     string
	GCSTimeout time.Duration
	Codebooks  *codebookCache
}

func (app *Application) compressMessageHandler(_ context.Context, msg common.MessageInterface) {
	var job common.CompressedMsgSchema
	if err := json.Unmarshal(msg.GetData(), &job); err != nil {
		slog.Error("Failed to unmarshal body from job message", "error", err)
		msg.Nack()
		return
	}

	slog.Info("Received job", "job", job.UID)

	// Download byte frequency table from GCS
	ctx, cancel := context.WithTimeout(*app.CTX, app.GCSTimeout)
	defer cancel()

	freqTableReader, err := app.GCSClient.NewObjectReader(ctx, app.Bucket, job.FreqTablePath)
	if err != nil {
		slog.Error("Failed to download byte frequency table", "job", job.UID, "error", err)
		msg.Nack()
		return
	}
	freqTableBytes, err := io.ReadAll(freqTableReader)
	freqTableReader.Close()
	if err != nil {
		slog.Error("Failed to download byte frequency table", "job", job.UID, "error", err)
		msg.Nack()
		return
	}

	var freqTable compression.FrequencyTable
	if err := json.Unmarshal(freqTableBytes, &freqTable); err != nil {
		slog.Error("Failed to decode byte frequency table", "job", job.UID, "error", err)
		msg.Nack()
		return
	}
	slog.Debug("Downloaded byte frequency table", "job", job.UID, "symbols", freqTable.Total)

	codebook, hit := app.Codebooks.get(xxhash.Sum64(freqTableBytes), freqTable)
	slog.Debug("Loaded Huffman code table", "job", job.UID, "cached", hit)

	// stream file content down and compress
	ogFileReader, err := app.GCSClient.NewObjectReader(ctx, app.Bucket, job.OriginalFilePath)
	if err != nil {
		slog.Error("Failed to locate original file content", "job", job.UID, "error", err)
		msg.Nack()
		return
	}
	defer ogFileReader.Close()

	digest := xxhash.New()
	compressedFilePath := common.CompressedResultPath(job.UID)
	wc := app.GCSClient.NewObjectWriter(ctx, app.Bucket, compressedFilePath)
	if err := codebook.Encode(io.TeeReader(ogFileReader, digest), wc); err != nil {
		// cancelling the context aborts the upload instead of committing it
		cancel()
		slog.Error("Failed to compress data", "job", job.UID, "error", err)
		msg.Nack()
		return
	}
	if sum := digest.Sum64(); sum != job.Checksum {
		cancel()
		slog.Error("Failed to compress data", "job", job.UID, "error", errChecksumMismatch, "got", sum, "want", job.Checksum)
		msg.Nack()
		return
	}
	if err := wc.Close(); err != nil {
		slog.Error("Failed to close data compressing stream to GCS", "job", job.UID, "error", err)
		msg.Nack()
		return
	}
	slog.Debug("Uploaded compressed data to GCS", "job", job.UID, "path", compressedFilePath)

	msg.Ack()
	slog.Info("Completed processing job", "job", job.UID)
}

func (app *Application) decompressMessageHandler(_ context.Context, msg common.MessageInterface) {
	var job common.DecompressedMsgSchema
	if err := json.Unmarshal(msg.GetData(), &job); err != nil {
		slog.Error("Failed to unmarshal body from job message", "error", err)
		msg.Nack()
		return
	}

	slog.Info("Received job", "job", job.UID)

	ctx, cancel := context.WithTimeout(*app.CTX, app.GCSTimeout)
	defer cancel()

	compFile, err := app.GCSClient.NewObjectReader(ctx, app.Bucket, job.CompressedFilePath)
	if err != nil {
		slog.Error("Failed to locate compressed file content", "job", job.UID, "error", err)
		msg.Nack()
		return
	}
	defer compFile.Close()

	resultFilePath := common.DecompressedResultPath(job.UID)
	wc := app.GCSClient.NewObjectWriter(ctx, app.Bucket, resultFilePath)
	if err := compression.Decompress(compFile, wc); err != nil {
		cancel()
		slog.Error("Failed to decompress data", "job", job.UID, "error", err)
		msg.Nack()
		return
	}
	if err := wc.Close(); err != nil {
		slog.Error("Failed to close data stream to GCS", "job", job.UID, "error", err)
		msg.Nack()
		return
	}
	slog.Debug("Uploaded final data to GCS", "job", job.UID, "path", resultFilePath)

	msg.Ack()
	slog.Info("Completed processing job", "job", job.UID)
}

func main() {
	methodFlag := flag.Bool("decompress", false, "flag to indicate this instance is for decompressing.")
	cacheSize := flag.Int("codebooks", 64, "number of Huffman code tables kept in memory.")
	flag.Parse()

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
	subID := os.Getenv("PUBSUB_SUB_ID")
	bucket := os.Getenv("GCS_BUCKET")
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

	realGCS := &common.RealGCSClient{Client: GCSClient}

	app := Application{
		GCSClient:  realGCS,
		CTX:        &ctx,
		Bucket:     bucket,
		GCSTimeout: 50 * time.Second,
		Codebooks:  newCodebookCache(*cacheSize),
	}

	sub := PUBSUBClient.Subscriber(subID)
	receiveFunc := func(ctx context.Context, msg *pubsub.Message) {
		wrappedMsg := &common.RealMessage{Msg: msg}
		if *methodFlag {
			app.decompressMessageHandler(ctx, wrappedMsg)
		} else {
			app.compressMessageHandler(ctx, wrappedMsg)
		}
	}

	if *methodFlag {
		slog.Info("Listening for a new decompressing message...")
	} else {
		slog.Info("Listening for a new compressing message...")
	}
	err = sub.Receive(ctx, receiveFunc)
	if err != nil && !errors.Is(err, context.Canceled) {
		slog.Error("Cannot process job", "error", err)
		return
	}
}
