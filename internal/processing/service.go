package processing

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/jmfigueroa/seisview/internal/catalog"
	"github.com/jmfigueroa/seisview/internal/dsp/bandpass"
	"github.com/jmfigueroa/seisview/internal/dsp/pick"
	"github.com/jmfigueroa/seisview/internal/dsp/spectrogram"
	"github.com/jmfigueroa/seisview/internal/mseed"
	"github.com/jmfigueroa/seisview/internal/repository"
	"github.com/jmfigueroa/seisview/internal/storage"
	"github.com/jmfigueroa/seisview/pkg/models"
)

type ProcessingService interface {
	ProcessWaveform(ctx context.Context, waveformID uuid.UUID) error
}

type processingService struct {
	s3       storage.S3Service
	repo     repository.WaveformRepository
	picks    repository.PickRepository
	filter   bandpass.Params
	detector pick.Config
	logger   zerolog.Logger
}

func NewProcessingService(s3Service storage.S3Service, repo repository.WaveformRepository,
	picks repository.PickRepository, filter bandpass.Params, detector pick.Config,
	logger zerolog.Logger) ProcessingService {
	return &processingService{
		s3:       s3Service,
		repo:     repo,
		picks:    picks,
		filter:   filter,
		detector: detector,
		logger:   logger,
	}
}

// ProcessWaveform runs the full analysis pipeline for an uploaded MSEED file.
// Data errors (bad file, no trigger) mark the waveform failed and return nil;
// infrastructure errors propagate to the caller.
func (s *processingService) ProcessWaveform(ctx context.Context, waveformID uuid.UUID) error {
	// Step 1: Update to processing status
	if err := s.repo.UpdateStatus(ctx, waveformID, "processing", 10); err != nil {
		return err
	}

	// Step 2: Get waveform details
	waveform, err := s.repo.GetByID(ctx, waveformID)
	if err != nil {
		return err
	}
	if waveform.MseedS3Key == nil {
		s.repo.UpdateError(ctx, waveformID, "No MSEED file registered for this waveform")
		return nil
	}

	// Step 3: Download from S3
	if err := s.repo.UpdateStatus(ctx, waveformID, "processing", 20); err != nil {
		return err
	}

	data, err := s.s3.DownloadFile(ctx, *waveform.MseedS3Key)
	if err != nil {
		s.repo.UpdateError(ctx, waveformID, "Failed to download MSEED file")
		return nil // Don't return error, status is updated to failed
	}

	// Step 4: Decode the MSEED record stream
	trace, err := mseed.Decode(data)
	if err != nil {
		s.repo.UpdateError(ctx, waveformID, fmt.Sprintf("Failed to decode MSEED file: %v", err))
		return nil
	}
	if trace.SampleRate <= 0 || len(trace.Samples) == 0 {
		s.repo.UpdateError(ctx, waveformID, "MSEED file contains no usable samples")
		return nil
	}

	s.logger.Info().
		Str("waveform_id", waveformID.String()).
		Str("source", trace.SourceID()).
		Float64("sample_rate", trace.SampleRate).
		Int("samples", len(trace.Samples)).
		Msg("decoded trace")

	// Step 5: Filter and run the P-wave detector
	if err := s.repo.UpdateStatus(ctx, waveformID, "processing", 50); err != nil {
		return err
	}

	detector, err := pick.NewDetector(s.detector, s.filter)
	if err != nil {
		return fmt.Errorf("invalid detector configuration: %w", err)
	}

	results := &models.WaveformResults{
		ID:          uuid.New().String(),
		WaveformID:  waveform.ID,
		StartTime:   trace.StartTime,
		SampleRate:  trace.SampleRate,
		NumSamples:  len(trace.Samples),
		DurationSec: trace.Duration(),
		Filter: models.FilterParams{
			LowHz:  s.filter.LowHz,
			HighHz: s.filter.HighHz,
			Order:  s.filter.Order,
		},
		CreatedAt: waveform.CreatedAt,
	}

	pickIndex := -1
	detection, err := detector.Detect(trace.Samples, trace.SampleRate)
	switch {
	case err == nil:
		pickIndex = detection.Index
		results.PickTimeSec = &detection.TimeSec
	case errors.Is(err, pick.ErrNoTrigger):
		s.logger.Warn().Str("waveform_id", waveformID.String()).Msg("no P arrival detected")
	default:
		s.repo.UpdateError(ctx, waveformID, fmt.Sprintf("P-wave detection failed: %v", err))
		return nil
	}

	// Step 6: Amplitude and energy metrics around the pick
	if err := s.repo.UpdateStatus(ctx, waveformID, "processing", 80); err != nil {
		return err
	}

	metrics := pick.ComputeMetrics(trace.Samples, pickIndex)
	results.MaxAmplitude = metrics.MaxAmplitude
	results.SNRDb = metrics.SNRDb
	results.EnergyRatio = metrics.EnergyRatio

	preprocessed, err := pick.Preprocess(trace.Samples, trace.SampleRate, s.filter)
	if err != nil {
		s.repo.UpdateError(ctx, waveformID, fmt.Sprintf("Trace preprocessing failed: %v", err))
		return nil
	}
	results.WaveletFeats = pick.WaveletFeatures(preprocessed)

	if sg, err := spectrogram.Compute(trace.Samples, trace.SampleRate); err == nil {
		summary := sg.Summarize(trace.SampleRate)
		results.Spectrogram = &models.SpectrogramSummary{
			SegmentLength:  summary.SegmentLength,
			Overlap:        summary.Overlap,
			NumSegments:    summary.NumSegments,
			NumBins:        summary.NumBins,
			FreqResolution: summary.FreqResolution,
			TimeResolution: summary.TimeResolution,
			DominantFreqHz: summary.DominantFreqHz,
			PeakPowerDB:    summary.PeakPowerDB,
		}
	} else {
		s.logger.Warn().Err(err).Str("waveform_id", waveformID.String()).Msg("spectrogram skipped")
	}

	// Step 7: Compare against the catalog pick when one exists
	if err := s.repo.UpdateStatus(ctx, waveformID, "processing", 90); err != nil {
		return err
	}

	catalogPick, err := s.picks.GetByEventID(ctx, waveform.EventID)
	if err != nil && !errors.Is(err, sql.ErrNoRows) {
		return err
	}
	if catalogPick != nil && catalogPick.PArrival != nil {
		v := catalog.Validate(trace.StartTime, trace.Duration(), catalogPick.PArrival)
		if v.RelativeSec != nil {
			results.CatalogPickSec = v.RelativeSec
			if results.PickTimeSec != nil {
				residual := *results.PickTimeSec - *v.RelativeSec
				results.PickResidual = &residual
			}
		}
	}

	if err := s.repo.StoreResults(ctx, results); err != nil {
		return err
	}

	// Step 8: Mark complete
	if err := s.repo.UpdateStatus(ctx, waveformID, "completed", 100); err != nil {
		return err
	}

	return nil
}
