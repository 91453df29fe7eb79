package main

import (
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/go-gota/gota/dataframe"
	"github.com/robfig/cron"

	"PredictingPoints/src/config"
	"PredictingPoints/src/datapush"
	"PredictingPoints/src/datasource/email"
	"PredictingPoints/src/datasource/file"
	"PredictingPoints/src/model"
	"PredictingPoints/src/processor"
	"PredictingPoints/src/storage"
	"PredictingPoints/src/utils"
)

func main() {
	jsonFolder := "./config"
	jsonFile := "config.json"
	dataJsonFile := "dataconfig.json"
	cfg, dcfg, err := config.LoadConfig(jsonFolder, jsonFile, dataJsonFile)
	if err != nil {
		log.Fatal("Failed to load configuration:", err)
	}

	if cfg.DataDir == "" {
		cfg.DataDir, err = file.GetTargetFolder("data", 1)
		if err != nil {
			log.Fatal("Failed to resolve data directory:", err)
		}
	}

	logName := cfg.LogName
	if logName == "" {
		logName = "app.log"
	}
	logger, err := storage.NewLogger(logName)
	if err != nil {
		log.Fatal("Failed to initialize logger:", err)
	}

	pusher := datapush.NewPusher(cfg.WebhookURL)
	go startWebUI(logger)

	// First full run at startup, then on every trigger below.
	runBatch(cfg, dcfg, logger, pusher)

	c := cron.New()
	interval := time.Duration(cfg.Email.CheckInterval)
	if interval <= 0 {
		interval = 5 * time.Minute
	}
	cronSpec := fmt.Sprintf("@every %s", interval)

	if cfg.Email.Server != "" {
		emailClient := email.NewEmailClient(
			cfg.Email.Server,
			cfg.Email.Username,
			cfg.Email.Password)
		handler := email.NewAttachmentHandler(cfg.Email.TargetSubject, cfg.DataDir)

		err = c.AddFunc(cronSpec, func() {
			logger.Info(fmt.Sprintf("scheduled mailbox check (%s)...", cronSpec))
			logger.CheckRotate(cfg)

			newEmail, err := email.CheckAndProcessEmails(emailClient, cfg.Email.TargetSubject, logger)
			if err != nil {
				logger.Error("mailbox check failed: " + err.Error())
				return
			}
			if newEmail == nil {
				return
			}

			saved, err := handler.Handle(newEmail, logger)
			if err != nil {
				logger.Error(fmt.Sprintf("handling mail failed (UID:%d): %v", newEmail.UID, err))
				return
			}
			if len(saved) > 0 {
				runBatch(cfg, dcfg, logger, pusher)
			}
		})
		if err != nil {
			logger.Error("failed to schedule mailbox check: " + err.Error())
			return
		}

		c.Start()
		defer c.Stop()
		logger.Info(fmt.Sprintf("mailbox polling started (interval: %v)", interval))
	}

	go watchDataDir(cfg, dcfg, logger, pusher)

	logger.Info("service started, press Ctrl+C to exit")
	waitForSignals(cfg, dcfg, logger, pusher)
}

// runBatch is one full pipeline pass: read the exports, build the feature
// table, finalize it with training-season medians, write it out, then train
// and score the baseline models.
func runBatch(cfg *config.Config, dcfg *config.DataConfig, logger *storage.Logger, pusher *datapush.Pusher) {
	started := time.Now()
	report := datapush.RunReport{StartedAt: started}

	fail := func(err error) {
		logger.Error(err.Error())
		report.Duration = time.Since(started).String()
		report.Error = err.Error()
		if pushErr := pusher.Push(report); pushErr != nil {
			logger.Error("failed to push run report: " + pushErr.Error())
		}
	}

	resultsPath := filepath.Join(cfg.DataDir, cfg.ResultsFile)
	results, err := file.ReadAny(resultsPath, cfg.SheetName, dcfg.NaNTokens...)
	if err != nil {
		fail(fmt.Errorf("reading results: %w", err))
		return
	}

	status := dataframe.New()
	if cfg.StatusFile != "" {
		statusPath := filepath.Join(cfg.DataDir, cfg.StatusFile)
		status, err = file.ReadAny(statusPath, cfg.SheetName, dcfg.NaNTokens...)
		if err != nil {
			fail(fmt.Errorf("reading status lookup: %w", err))
			return
		}
	}

	df, err := processor.BuildFeatures(results, status)
	if err != nil {
		fail(fmt.Errorf("building features: %w", err))
		return
	}

	// Prefer medians from the configured training seasons. If that fails
	// (no year column, bad range) fall back to the externally supplied
	// reference values so the fill policy never silently changes.
	medians, err := processor.TrainMedians(df, cfg.TrainYears[0], cfg.TrainYears[1])
	if err != nil {
		logger.Warning("training medians unavailable, using configured fills: " + err.Error())
		medians = dcfg.FillMedians
	} else {
		for col, v := range medians {
			dcfg.SetFillMedian(col, v)
		}
	}

	final, err := processor.Finalize(df, medians)
	if err != nil {
		fail(fmt.Errorf("finalizing features: %w", err))
		return
	}

	outPath := filepath.Join(cfg.DataDir, "features.xlsx")
	if err := utils.SaveToExcel(final, outPath); err != nil {
		logger.Error("failed to save feature table: " + err.Error())
	} else {
		logger.Info("feature table saved to " + outPath)
		report.OutputPath = outPath

		if cfg.SendEmail.Server != "" {
			if cfg.SendEmail.Attachment == "" {
				cfg.SendEmail.Attachment = outPath
			}
			if err := email.SendReport(cfg); err != nil {
				logger.Error("failed to send report mail: " + err.Error())
			} else {
				logger.Info("report mail sent")
			}
		}
	}

	report.Rows = final.Nrow()
	report.Metrics = trainAndScore(final, dcfg, cfg, logger)
	report.Duration = time.Since(started).String()

	logger.Info(fmt.Sprintf("pipeline run finished: %d rows in %s", final.Nrow(), report.Duration))
	if err := pusher.Push(report); err != nil {
		logger.Error("failed to push run report: " + err.Error())
	}
}

// trainAndScore fits the baselines on the training seasons and reports
// metrics on the later test seasons. Model failures are logged, never
// fatal: the feature table itself has already been written.
func trainAndScore(df dataframe.DataFrame, dcfg *config.DataConfig, cfg *config.Config, logger *storage.Logger) map[string]float64 {
	featureCols := dcfg.FeatureColumns
	if len(featureCols) == 0 {
		featureCols = append([]string{"grid_clean"}, processor.PastFeatureColumns...)
	}
	targetCol := dcfg.TargetColumn
	if targetCol == "" {
		targetCol = "points"
	}

	train, test, err := model.TimeSplit(df, cfg.TrainYears[0], cfg.TrainYears[1], cfg.TestYears[0], cfg.TestYears[1])
	if err != nil {
		logger.Warning("season split failed, skipping model evaluation: " + err.Error())
		return nil
	}

	trainX, trainY, err := model.FrameMatrix(train, featureCols, targetCol)
	if err != nil {
		logger.Warning("extracting training matrix failed: " + err.Error())
		return nil
	}
	testX, testY, err := model.FrameMatrix(test, featureCols, targetCol)
	if err != nil {
		logger.Warning("extracting test matrix failed: " + err.Error())
		return nil
	}

	metrics := make(map[string]float64)
	regressors := map[string]model.Regressor{
		"linear": model.NewLinearRegression(),
		"tree":   model.NewDecisionTree(8),
	}
	for name, reg := range regressors {
		if err := reg.Fit(trainX, trainY); err != nil {
			logger.Warning(fmt.Sprintf("fitting %s model failed: %v", name, err))
			continue
		}
		pred, err := reg.Predict(testX)
		if err != nil {
			logger.Warning(fmt.Sprintf("predicting with %s model failed: %v", name, err))
			continue
		}
		m, err := model.Evaluate(testY, pred)
		if err != nil {
			logger.Warning(fmt.Sprintf("evaluating %s model failed: %v", name, err))
			continue
		}
		logger.Info(fmt.Sprintf("%s model on %d test rows: %s", name, len(testY), m))
		metrics[name+"_rmse"] = m.RMSE
		metrics[name+"_mae"] = m.MAE
		metrics[name+"_r2"] = m.R2
	}
	return metrics
}

// watchDataDir triggers a recompute whenever a fresh export lands in the
// data directory.
func watchDataDir(cfg *config.Config, dcfg *config.DataConfig, logger *storage.Logger, pusher *datapush.Pusher) {
	monitor, err := file.NewFileMonitor(cfg.DataDir)
	if err != nil {
		logger.Error("file monitoring unavailable: " + err.Error())
		return
	}
	defer monitor.Close()

	err = monitor.Watch(func(path string) {
		logger.Info("new data file detected: " + path)
		runBatch(cfg, dcfg, logger, pusher)
	})
	if err != nil {
		logger.Error("file monitoring stopped: " + err.Error())
	}
}

// waitForSignals blocks until shutdown. SIGHUP forces a recompute without
// restarting the service.
func waitForSignals(cfg *config.Config, dcfg *config.DataConfig, logger *storage.Logger, pusher *datapush.Pusher) {
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM, syscall.SIGHUP)

	for sig := range sigChan {
		if sig == syscall.SIGHUP {
			logger.Info("SIGHUP received, recomputing features")
			runBatch(cfg, dcfg, logger, pusher)
			continue
		}
		logger.Info("Received signal: " + sig.String() + ", shutting down...")
		logger.Close()
		os.Exit(0)
	}
}

// startWebUI streams live log entries over HTTP for quick inspection.
func startWebUI(logger *storage.Logger) {
	http.HandleFunc("/logs", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		w.Header().Set("Transfer-Encoding", "chunked")

		logChan := logger.Subscribe()

		for {
			select {
			case msg := <-logChan:
				if _, err := fmt.Fprintln(w, msg); err != nil {
					return
				}
				if f, ok := w.(http.Flusher); ok {
					f.Flush()
				}
			case <-r.Context().Done():
				return
			}
		}
	})

	http.ListenAndServe(":8080", nil)
}
