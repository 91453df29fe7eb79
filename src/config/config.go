package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"
)

// Config is the service configuration, loaded once from JSON.
type Config struct {
	Email struct {
		Server        string   `json:"server"`         // IMAP server address
		Username      string   `json:"username"`       // mailbox user
		Password      string   `json:"password"`       // mailbox password
		TargetSubject string   `json:"target_subject"` // subject filter for data mails
		CheckInterval Duration `json:"check_interval"` // poll interval for new mail
	} `json:"email"`

	DataDir     string `json:"data_dir"`     // where incoming data files land
	ResultsFile string `json:"results_file"` // race results export (csv or xlsx)
	StatusFile  string `json:"status_file"`  // status lookup export
	SheetName   string `json:"sheet_name"`   // worksheet holding the results
	LogName     string `json:"log_name"`
	LogMaxSize  string `json:"log_max_size"` // size expression, e.g. "10 * 1024 * 1024"
	WebhookURL  string `json:"webhook_url"`  // run-report destination, empty to disable

	// Season ranges for the train/test partition, both ends inclusive.
	TrainYears [2]int `json:"train_years"`
	TestYears  [2]int `json:"test_years"`

	SendEmail struct {
		Server        string `json:"server"`
		Username      string `json:"username"`
		Password      string `json:"password"`
		TargetSubject string `json:"target_subject"`
		Attachment    string `json:"attachment"`
	} `json:"send_email"`
}

// DataConfig carries the feature-table knobs that change more often than the
// service wiring: the model's input columns and pre-computed fill values.
type DataConfig struct {
	FeatureColumns []string           `json:"featureColumns"` // model inputs
	TargetColumn   string             `json:"targetColumn"`   // usually "points"
	NaNTokens      []string           `json:"nanTokens"`      // extra missing-value spellings, e.g. "\\N"
	FillMedians    map[string]float64 `json:"fillMedians"`    // external median reference, may be empty
}

var (
	once               sync.Once
	instance           *Config
	dataConfigInstance *DataConfig
	mu                 sync.RWMutex
)

// LoadConfig reads and parses both configuration files. The files are parsed
// concurrently and only ever loaded once per process.
func LoadConfig(jsonFolder, jsonFile, dataJsonFile string) (*Config, *DataConfig, error) {
	var err error
	once.Do(func() {
		instance, dataConfigInstance, err = loadConfigs(jsonFolder, jsonFile, dataJsonFile)
	})
	return instance, dataConfigInstance, err
}

func loadConfigs(jsonFolder, jsonFile, dataJsonFile string) (*Config, *DataConfig, error) {
	configFile := filepath.Join(jsonFolder, jsonFile)
	dataConfigFile := filepath.Join(jsonFolder, dataJsonFile)

	configData, err := readFile(configFile)
	if err != nil {
		return nil, nil, fmt.Errorf("reading config file: %w", err)
	}

	dataConfigData, err := readFile(dataConfigFile)
	if err != nil {
		return nil, nil, fmt.Errorf("reading data config file: %w", err)
	}

	cfgChan := make(chan *Config, 1)
	dcfgChan := make(chan *DataConfig, 1)
	errChan := make(chan error, 2)

	go parseConfig(configData, cfgChan, errChan)
	go parseDataConfig(dataConfigData, dcfgChan, errChan)

	cfg, dcfg, err := waitForResults(cfgChan, dcfgChan, errChan)
	if err != nil {
		return nil, nil, err
	}

	return cfg, dcfg, nil
}

func readFile(filePath string) ([]byte, error) {
	data, err := os.ReadFile(filePath)
	if err != nil {
		return nil, fmt.Errorf("cannot read file %s: %w", filePath, err)
	}
	return data, nil
}

func parseConfig(data []byte, resultChan chan<- *Config, errChan chan<- error) {
	var cfg Config
	if err := json.Unmarshal(data, &cfg); err != nil {
		errChan <- fmt.Errorf("parsing Config: %w", err)
		return
	}
	resultChan <- &cfg
}

func parseDataConfig(data []byte, resultChan chan<- *DataConfig, errChan chan<- error) {
	var dcfg DataConfig
	if err := json.Unmarshal(data, &dcfg); err != nil {
		errChan <- fmt.Errorf("parsing DataConfig: %w", err)
		return
	}
	resultChan <- &dcfg
}

func waitForResults(
	cfgChan <-chan *Config,
	dcfgChan <-chan *DataConfig,
	errChan <-chan error,
) (*Config, *DataConfig, error) {
	var (
		cfg    *Config
		dcfg   *DataConfig
		errors []error
	)

	for i := 0; i < 2; i++ {
		select {
		case c := <-cfgChan:
			cfg = c
		case d := <-dcfgChan:
			dcfg = d
		case err := <-errChan:
			errors = append(errors, err)
		}
	}

	if len(errors) > 0 {
		return nil, nil, combineErrors(errors)
	}

	if cfg == nil || dcfg == nil {
		return nil, nil, fmt.Errorf("some configuration failed to load")
	}

	return cfg, dcfg, nil
}

func combineErrors(errs []error) error {
	if len(errs) == 0 {
		return nil
	}

	msg := "configuration loading hit multiple errors:"
	for _, err := range errs {
		msg = fmt.Sprintf("%s\n- %v", msg, err)
	}
	return fmt.Errorf("%s", msg)
}

// Duration wraps time.Duration so intervals can be written as "5m" in JSON.
type Duration time.Duration

func (d *Duration) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	dur, err := time.ParseDuration(s)
	if err != nil {
		return err
	}
	*d = Duration(dur)
	return nil
}

func (d Duration) MarshalJSON() ([]byte, error) {
	return json.Marshal(time.Duration(d).String())
}

// GetFillMedian returns the configured fill value for a column, if any.
func (dc *DataConfig) GetFillMedian(colName string) (float64, bool) {
	mu.RLock()
	defer mu.RUnlock()
	v, ok := dc.FillMedians[colName]
	return v, ok
}

// SetFillMedian records a fill value, typically after TrainMedians runs.
func (dc *DataConfig) SetFillMedian(colName string, value float64) {
	mu.Lock()
	defer mu.Unlock()
	if dc.FillMedians == nil {
		dc.FillMedians = make(map[string]float64)
	}
	dc.FillMedians[colName] = value
}
