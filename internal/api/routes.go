package api

import (
	"database/sql"
	"net/http"

	"github.com/danielgtaylor/huma/v2"
	"github.com/go-chi/chi/v5"

	"github.com/jmfigueroa/seisview/internal/api/handlers"
	"github.com/jmfigueroa/seisview/internal/processing"
	"github.com/jmfigueroa/seisview/internal/repository"
	"github.com/jmfigueroa/seisview/internal/storage"
)

// RegisterRoutes sets up all API routes
func RegisterRoutes(router *chi.Mux, api huma.API, db *sql.DB, s3Service storage.S3Service,
	waveformRepo repository.WaveformRepository, pickRepo repository.PickRepository,
	processingSvc processing.ProcessingService) {

	waveformHandler := handlers.NewWaveformHandler(waveformRepo, s3Service, processingSvc)
	catalogHandler := handlers.NewCatalogHandler(pickRepo, waveformRepo)
	exportHandler := handlers.NewExportHandler(waveformRepo, s3Service)

	huma.Register(api, huma.Operation{
		OperationID: "createWaveform",
		Method:      http.MethodPost,
		Path:        "/api/waveforms",
		Summary:     "Register a new waveform",
		Description: "Creates a waveform record for a catalog event and returns an upload URL",
		Tags:        []string{"Waveforms"},
	}, waveformHandler.CreateWaveform)

	huma.Register(api, huma.Operation{
		OperationID: "listWaveforms",
		Method:      http.MethodGet,
		Path:        "/api/waveforms",
		Summary:     "List waveforms for an event",
		Description: "Returns the waveforms registered for a catalog event, newest first",
		Tags:        []string{"Waveforms"},
	}, waveformHandler.ListWaveforms)

	huma.Register(api, huma.Operation{
		OperationID: "getWaveformStatus",
		Method:      http.MethodGet,
		Path:        "/api/waveforms/{id}/status",
		Summary:     "Get waveform status",
		Description: "Returns the current status and progress of a waveform analysis",
		Tags:        []string{"Waveforms"},
	}, waveformHandler.GetWaveformStatus)

	huma.Register(api, huma.Operation{
		OperationID: "getWaveformResults",
		Method:      http.MethodGet,
		Path:        "/api/waveforms/{id}/results",
		Summary:     "Get waveform results",
		Description: "Returns the complete analysis results including pick times and signal metrics",
		Tags:        []string{"Waveforms"},
	}, waveformHandler.GetWaveformResults)

	huma.Register(api, huma.Operation{
		OperationID: "startProcessing",
		Method:      http.MethodPost,
		Path:        "/api/waveforms/{id}/process",
		Summary:     "Start processing a waveform",
		Description: "Starts the analysis pipeline for an uploaded MSEED file",
		Tags:        []string{"Waveforms"},
	}, waveformHandler.StartProcessing)

	huma.Register(api, huma.Operation{
		OperationID: "exportWaveformCSV",
		Method:      http.MethodGet,
		Path:        "/api/waveforms/{id}/export.csv",
		Summary:     "Export filtered trace as CSV",
		Description: "Returns the raw and bandpass-filtered trace as a CSV table",
		Tags:        []string{"Export"},
	}, exportHandler.ExportCSV)

	huma.Register(api, huma.Operation{
		OperationID: "plotWaveformPNG",
		Method:      http.MethodGet,
		Path:        "/api/waveforms/{id}/plot.png",
		Summary:     "Render waveform plot",
		Description: "Returns a PNG figure of the raw and filtered trace with the detected pick marked",
		Tags:        []string{"Export"},
	}, exportHandler.PlotPNG)

	huma.Register(api, huma.Operation{
		OperationID: "importCatalog",
		Method:      http.MethodPost,
		Path:        "/api/catalog",
		Summary:     "Import a pick catalog",
		Description: "Parses a CSV pick catalog and stores its P arrivals",
		Tags:        []string{"Catalog"},
	}, catalogHandler.ImportCatalog)

	huma.Register(api, huma.Operation{
		OperationID: "validateCatalog",
		Method:      http.MethodPost,
		Path:        "/api/catalog/validate",
		Summary:     "Validate catalog picks",
		Description: "Checks every stored pick against the time window of its processed waveforms",
		Tags:        []string{"Catalog"},
	}, catalogHandler.ValidateCatalog)
}
