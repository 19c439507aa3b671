package processing

import (
	"bytes"
	"context"
	"database/sql"
	"encoding/binary"
	"fmt"
	"math"
	"math/rand"
	"os"
	"testing"
	"time"

	"github.com/google/uuid"
	_ "github.com/lib/pq"
	"github.com/minio/minio-go/v7"
	miniocreds "github.com/minio/minio-go/v7/pkg/credentials"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	tcminio "github.com/testcontainers/testcontainers-go/modules/minio"
	pgContainer "github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"

	"github.com/jmfigueroa/seisview/internal/dsp/bandpass"
	"github.com/jmfigueroa/seisview/internal/dsp/pick"
	"github.com/jmfigueroa/seisview/internal/repository/postgres"
	"github.com/jmfigueroa/seisview/internal/storage"
	"github.com/jmfigueroa/seisview/pkg/models"
)

// TestContainer holds test infrastructure
type TestContainer struct {
	postgresContainer testcontainers.Container
	minioContainer    testcontainers.Container
	dbURL             string
	minioURL          string
	bucketName        string
}

// SetupIntegrationTest sets up PostgreSQL and MinIO containers for integration testing
func SetupIntegrationTest(t *testing.T) *TestContainer {
	t.Helper()

	ctx := context.Background()

	pg, err := pgContainer.Run(ctx,
		"postgres:15-alpine",
		pgContainer.WithDatabase("seisview_test"),
		pgContainer.WithUsername("testuser"),
		pgContainer.WithPassword("testpass"),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).WithStartupTimeout(30*time.Second)),
	)
	require.NoError(t, err)

	dbURL, err := pg.ConnectionString(ctx, "sslmode=disable")
	require.NoError(t, err)

	minioContainer, err := tcminio.Run(ctx,
		"minio/minio:RELEASE.2024-10-29T16-01-48Z",
		tcminio.WithUsername("minioadmin"),
		tcminio.WithPassword("minioadmin"),
	)
	require.NoError(t, err)

	minioURL, err := minioContainer.ConnectionString(ctx)
	require.NoError(t, err)

	bucketName := "seisview-test-" + uuid.New().String()[:8]
	require.NoError(t, createMinioBucket(ctx, minioURL, bucketName))

	return &TestContainer{
		postgresContainer: pg,
		minioContainer:    minioContainer,
		dbURL:             dbURL,
		minioURL:          minioURL,
		bucketName:        bucketName,
	}
}

// CleanupIntegrationTest cleans up test containers
func (tc *TestContainer) CleanupIntegrationTest(t *testing.T) {
	t.Helper()
	ctx := context.Background()

	if tc.minioContainer != nil {
		require.NoError(t, tc.minioContainer.Terminate(ctx))
	}
	if tc.postgresContainer != nil {
		require.NoError(t, tc.postgresContainer.Terminate(ctx))
	}
}

func minioClient(endpoint string) (*minio.Client, error) {
	return minio.New(endpoint, &minio.Options{
		Creds:  miniocreds.NewStaticV4("minioadmin", "minioadmin", ""),
		Secure: false,
	})
}

func createMinioBucket(ctx context.Context, minioURL, bucketName string) error {
	client, err := minioClient(minioURL)
	if err != nil {
		return err
	}
	return client.MakeBucket(ctx, bucketName, minio.MakeBucketOptions{})
}

func uploadToMinio(ctx context.Context, minioURL, bucketName, key string, data []byte) error {
	client, err := minioClient(minioURL)
	if err != nil {
		return err
	}
	_, err = client.PutObject(ctx, bucketName, key, bytes.NewReader(data), int64(len(data)),
		minio.PutObjectOptions{ContentType: "application/vnd.fdsn.mseed"})
	return err
}

func runMigrations(t *testing.T, db *sql.DB) {
	t.Helper()

	schema, err := os.ReadFile("../../migrations/000001_init.up.sql")
	require.NoError(t, err)

	_, err = db.Exec(string(schema))
	require.NoError(t, err)
}

// buildMseedFile encodes samples as a sequence of 512-byte INT32 big-endian
// miniSEED records starting at the given time.
func buildMseedFile(t *testing.T, samples []float64, sampleRate int, start time.Time) []byte {
	t.Helper()

	const recLen = 512
	const dataOffset = 64
	perRecord := (recLen - dataOffset) / 4

	var out bytes.Buffer
	seq := 1
	for off := 0; off < len(samples); off += perRecord {
		end := off + perRecord
		if end > len(samples) {
			end = len(samples)
		}
		chunk := samples[off:end]

		rec := make([]byte, recLen)
		copy(rec[:6], fmt.Sprintf("%06d", seq))
		rec[6] = 'D'
		rec[7] = ' '
		copy(rec[8:13], "ST01 ")
		copy(rec[15:18], "HHZ")
		copy(rec[18:20], "CX")

		recStart := start.Add(time.Duration(off) * time.Second / time.Duration(sampleRate))
		binary.BigEndian.PutUint16(rec[20:22], uint16(recStart.Year()))
		binary.BigEndian.PutUint16(rec[22:24], uint16(recStart.YearDay()))
		rec[24] = byte(recStart.Hour())
		rec[25] = byte(recStart.Minute())
		rec[26] = byte(recStart.Second())
		binary.BigEndian.PutUint16(rec[28:30], uint16(recStart.Nanosecond()/100_000))

		binary.BigEndian.PutUint16(rec[30:32], uint16(len(chunk)))
		binary.BigEndian.PutUint16(rec[32:34], uint16(int16(sampleRate)))
		binary.BigEndian.PutUint16(rec[34:36], 1)

		rec[39] = 1 // one blockette
		binary.BigEndian.PutUint16(rec[44:46], dataOffset)
		binary.BigEndian.PutUint16(rec[46:48], 48)

		// Blockette 1000: INT32, big-endian, 512-byte records
		binary.BigEndian.PutUint16(rec[48:50], 1000)
		rec[52] = 3
		rec[53] = 1
		rec[54] = 9

		for i, v := range chunk {
			binary.BigEndian.PutUint32(rec[dataOffset+4*i:], uint32(int32(v)))
		}

		out.Write(rec)
		seq++
	}
	return out.Bytes()
}

// syntheticEventCounts builds an integer-valued trace with a P arrival.
func syntheticEventCounts(fs float64, durSec, onsetSec float64) []float64 {
	rng := rand.New(rand.NewSource(21))
	n := int(durSec * fs)
	onset := int(onsetSec * fs)

	out := make([]float64, n)
	for i := range out {
		v := 20 * rng.NormFloat64()
		if i >= onset {
			decay := math.Exp(-float64(i-onset) / (5 * fs))
			v += 1000 * decay * math.Sin(2*math.Pi*8*float64(i)/fs)
		}
		out[i] = math.Round(v)
	}
	return out
}

// TestFullWaveformPipeline_Integration tests the complete analysis pipeline
func TestFullWaveformPipeline_Integration(t *testing.T) {
	if testing.Short() {
		t.Skip("Skipping integration test in short mode")
	}

	tc := SetupIntegrationTest(t)
	defer tc.CleanupIntegrationTest(t)

	ctx := context.Background()

	db, err := sql.Open("postgres", tc.dbURL)
	require.NoError(t, err)
	defer db.Close()

	runMigrations(t, db)

	repo := postgres.NewPostgresWaveformRepository(db)
	pickRepo := postgres.NewPostgresPickRepository(db)

	s3Service, err := storage.NewS3Service(storage.S3Config{
		Bucket:    tc.bucketName,
		Endpoint:  tc.minioURL,
		AccessKey: "minioadmin",
		SecretKey: "minioadmin",
	})
	require.NoError(t, err)

	svc := NewProcessingService(s3Service, repo, pickRepo,
		bandpass.DefaultParams(), pick.DefaultConfig(), zerolog.Nop())

	// Fixture: 80 s at 100 Hz with a P arrival 30 s in
	const fs = 100.0
	const onsetSec = 30.0
	start := time.Date(2023, 4, 10, 10, 20, 30, 0, time.UTC)
	samples := syntheticEventCounts(fs, 80, onsetSec)
	mseedData := buildMseedFile(t, samples, int(fs), start)

	mseedKey := fmt.Sprintf("waveforms/test-%s.mseed", uuid.New().String()[:8])
	require.NoError(t, uploadToMinio(ctx, tc.minioURL, tc.bucketName, mseedKey, mseedData))

	// Catalog pick for the same event, 30 s after trace start
	const eventID = 123
	pArrival := start.Add(30 * time.Second)
	require.NoError(t, pickRepo.UpsertPick(ctx, &models.CatalogPick{
		ID:        uuid.New().String(),
		EventID:   eventID,
		PArrival:  &pArrival,
		Source:    models.PickSourceCatalog,
		CreatedAt: time.Now().UTC(),
	}))

	waveform := &models.Waveform{
		ID:         uuid.New().String(),
		EventID:    eventID,
		Station:    "CX.ST01..HHZ",
		Status:     "pending",
		MseedS3Key: &mseedKey,
		CreatedAt:  time.Now().UTC(),
		UpdatedAt:  time.Now().UTC(),
	}
	require.NoError(t, repo.Create(ctx, waveform))

	waveformID, err := uuid.Parse(waveform.ID)
	require.NoError(t, err)
	require.NoError(t, svc.ProcessWaveform(ctx, waveformID))

	final, err := repo.GetByID(ctx, waveformID)
	require.NoError(t, err)
	assert.Equal(t, "completed", final.Status)
	assert.Equal(t, 100, final.Progress)
	assert.NotNil(t, final.CompletedAt)

	results, err := repo.GetResults(ctx, waveformID)
	require.NoError(t, err)

	assert.Equal(t, fs, results.SampleRate)
	assert.Equal(t, len(samples), results.NumSamples)
	assert.InDelta(t, 80.0, results.DurationSec, 0.01)

	require.NotNil(t, results.PickTimeSec)
	assert.InDelta(t, onsetSec, *results.PickTimeSec, 1.0)

	require.NotNil(t, results.CatalogPickSec)
	assert.InDelta(t, 30.0, *results.CatalogPickSec, 0.01)
	require.NotNil(t, results.PickResidual)
	assert.InDelta(t, 0.0, *results.PickResidual, 1.0)

	require.NotNil(t, results.SNRDb)
	assert.Greater(t, *results.SNRDb, 10.0)
	assert.Len(t, results.WaveletFeats, pick.FeatureCount)

	require.NotNil(t, results.Spectrogram)
	assert.InDelta(t, 8.0, results.Spectrogram.DominantFreqHz, 2*results.Spectrogram.FreqResolution)
}

// TestWaveformPipelineFailure_Integration tests error handling in the pipeline
func TestWaveformPipelineFailure_Integration(t *testing.T) {
	if testing.Short() {
		t.Skip("Skipping integration test in short mode")
	}

	tc := SetupIntegrationTest(t)
	defer tc.CleanupIntegrationTest(t)

	ctx := context.Background()

	db, err := sql.Open("postgres", tc.dbURL)
	require.NoError(t, err)
	defer db.Close()

	runMigrations(t, db)

	repo := postgres.NewPostgresWaveformRepository(db)
	pickRepo := postgres.NewPostgresPickRepository(db)

	s3Service, err := storage.NewS3Service(storage.S3Config{
		Bucket:    tc.bucketName,
		Endpoint:  tc.minioURL,
		AccessKey: "minioadmin",
		SecretKey: "minioadmin",
	})
	require.NoError(t, err)

	svc := NewProcessingService(s3Service, repo, pickRepo,
		bandpass.DefaultParams(), pick.DefaultConfig(), zerolog.Nop())

	nonExistentKey := "waveforms/non-existent.mseed"
	waveform := &models.Waveform{
		ID:         uuid.New().String(),
		EventID:    456,
		Status:     "pending",
		MseedS3Key: &nonExistentKey,
		CreatedAt:  time.Now().UTC(),
		UpdatedAt:  time.Now().UTC(),
	}
	require.NoError(t, repo.Create(ctx, waveform))

	waveformID, err := uuid.Parse(waveform.ID)
	require.NoError(t, err)
	// Data failures mark the waveform failed without returning an error
	require.NoError(t, svc.ProcessWaveform(ctx, waveformID))

	final, err := repo.GetByID(ctx, waveformID)
	require.NoError(t, err)
	assert.Equal(t, "failed", final.Status)
	require.NotNil(t, final.ErrorMsg)
	assert.Contains(t, *final.ErrorMsg, "download")
}

// TestWaveformPipelineBadFile_Integration feeds a non-MSEED object through the pipeline
func TestWaveformPipelineBadFile_Integration(t *testing.T) {
	if testing.Short() {
		t.Skip("Skipping integration test in short mode")
	}

	tc := SetupIntegrationTest(t)
	defer tc.CleanupIntegrationTest(t)

	ctx := context.Background()

	db, err := sql.Open("postgres", tc.dbURL)
	require.NoError(t, err)
	defer db.Close()

	runMigrations(t, db)

	repo := postgres.NewPostgresWaveformRepository(db)
	pickRepo := postgres.NewPostgresPickRepository(db)

	s3Service, err := storage.NewS3Service(storage.S3Config{
		Bucket:    tc.bucketName,
		Endpoint:  tc.minioURL,
		AccessKey: "minioadmin",
		SecretKey: "minioadmin",
	})
	require.NoError(t, err)

	svc := NewProcessingService(s3Service, repo, pickRepo,
		bandpass.DefaultParams(), pick.DefaultConfig(), zerolog.Nop())

	badKey := fmt.Sprintf("waveforms/bad-%s.mseed", uuid.New().String()[:8])
	require.NoError(t, uploadToMinio(ctx, tc.minioURL, tc.bucketName, badKey, []byte("this is not a miniSEED file")))

	waveform := &models.Waveform{
		ID:         uuid.New().String(),
		EventID:    789,
		Status:     "pending",
		MseedS3Key: &badKey,
		CreatedAt:  time.Now().UTC(),
		UpdatedAt:  time.Now().UTC(),
	}
	require.NoError(t, repo.Create(ctx, waveform))

	waveformID, err := uuid.Parse(waveform.ID)
	require.NoError(t, err)
	require.NoError(t, svc.ProcessWaveform(ctx, waveformID))

	final, err := repo.GetByID(ctx, waveformID)
	require.NoError(t, err)
	assert.Equal(t, "failed", final.Status)
	require.NotNil(t, final.ErrorMsg)
	assert.Contains(t, *final.ErrorMsg, "decode")
}
