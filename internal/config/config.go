package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/deploymenttheory/go-app-walkthrough/internal/utils/fsutil"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

const (
	// AppName is the application name used for config files and directories
	AppName = "go-app-walkthrough"

	// EnvPrefix is the prefix for environment variables
	EnvPrefix = "APP_WALKTHROUGH"
)

// PathsConfig locates workflow definitions and the documentation trees
type PathsConfig struct {
	WorkflowsDir string `mapstructure:"workflows_dir"`
	StagingDir   string `mapstructure:"staging_dir"`
	OutputDir    string `mapstructure:"output_dir"`
	HistoryDir   string `mapstructure:"history_dir"`
	StateDB      string `mapstructure:"state_db"`
}

// PointerConfig holds the command templates used by the pointer backend.
// Templates are rendered with text/template and run through the shell.
type PointerConfig struct {
	Launch     string  `mapstructure:"launch"`
	Click      string  `mapstructure:"click"`
	Type       string  `mapstructure:"type"`
	Screenshot string  `mapstructure:"screenshot"`
	InputScale float64 `mapstructure:"input_scale"`
}

// ElementConfig selects and addresses the accessibility driver
type ElementConfig struct {
	Driver       string `mapstructure:"driver"` // webdriver or cdp
	WebDriverURL string `mapstructure:"webdriver_url"`
	CDPURL       string `mapstructure:"cdp_url"`
	BrowserBin   string `mapstructure:"browser_bin"`
}

// AutomationConfig holds timing defaults in seconds and driver settings
type AutomationConfig struct {
	StartupWait     float64       `mapstructure:"startup_wait"`
	ScreenshotDelay float64       `mapstructure:"screenshot_delay"`
	ImplicitWait    float64       `mapstructure:"implicit_wait"`
	WaitBefore      float64       `mapstructure:"wait_before"`
	WaitAfter       float64       `mapstructure:"wait_after"`
	ScaleFactor     float64       `mapstructure:"scale_factor"`
	Pointer         PointerConfig `mapstructure:"pointer"`
	Element         ElementConfig `mapstructure:"element"`
}

// DocumentationConfig holds rendering defaults
type DocumentationConfig struct {
	ScreenshotMaxHeight int    `mapstructure:"screenshot_max_height"`
	IndexTitle          string `mapstructure:"index_title"`
}

// ReviewConfig controls how published trees are versioned
type ReviewConfig struct {
	ArchiveFormat string `mapstructure:"archive_format"` // xz or bzip2
	KeepHistory   bool   `mapstructure:"keep_history"`
}

// GCPConfig addresses the optional published-tree mirror bucket
type GCPConfig struct {
	Bucket          string `mapstructure:"bucket"`
	Prefix          string `mapstructure:"prefix"`
	CredentialsFile string `mapstructure:"credentials_file"`
	ProjectID       string `mapstructure:"project_id"`
	Concurrency     int    `mapstructure:"concurrency"`
}

// StorageConfig selects the mirror provider
type StorageConfig struct {
	Provider string    `mapstructure:"provider"` // "" or gcp
	GCP      GCPConfig `mapstructure:"gcp"`
}

// PreviewConfig holds the preview server settings
type PreviewConfig struct {
	Listen string `mapstructure:"listen"`
}

// AppConfig holds the application configuration
type AppConfig struct {
	// Core settings
	Debug     bool   `mapstructure:"debug"`
	LogFormat string `mapstructure:"log_format"`
	LogFile   string `mapstructure:"log_file"`

	Paths         PathsConfig         `mapstructure:"paths"`
	Automation    AutomationConfig    `mapstructure:"automation"`
	Documentation DocumentationConfig `mapstructure:"documentation"`
	Review        ReviewConfig        `mapstructure:"review"`
	Storage       StorageConfig       `mapstructure:"storage"`
	Preview       PreviewConfig       `mapstructure:"preview"`
}

// Global variables
var (
	// Global configuration instance
	Instance AppConfig

	// Status indicators
	ConfigLoaded bool
	ConfigFile   string

	// Viper instance. Created eagerly so flags can be bound before Initialize.
	v = viper.New()

	mu       sync.Mutex
	initOnce sync.Once
)

// Initialize sets up the configuration system
func Initialize(cfgFile string) error {
	var err error

	initOnce.Do(func() {
		err = load(cfgFile)
	})

	return err
}

// Reload reads cfgFile (or the default search paths when empty) again and
// refreshes Instance. Flag bindings made with BindFlag are kept.
func Reload(cfgFile string) error {
	return load(cfgFile)
}

// Refresh re-unmarshals Instance so values of bound flags parsed after
// Initialize take effect.
func Refresh() error {
	mu.Lock()
	defer mu.Unlock()

	if err := v.Unmarshal(&Instance); err != nil {
		return fmt.Errorf("error parsing config: %w", err)
	}
	return nil
}

// BindFlag binds a configuration key to a command line flag
func BindFlag(key string, flag *pflag.Flag) error {
	mu.Lock()
	defer mu.Unlock()

	return v.BindPFlag(key, flag)
}

func load(cfgFile string) error {
	mu.Lock()
	defer mu.Unlock()

	var err error

	setDefaults(v)

	if cfgFile != "" {
		v.SetConfigFile(cfgFile)
	} else {
		v.SetConfigName(AppName)
		v.SetConfigType("yaml")
		addSearchPaths(v)
	}

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	v.AutomaticEnv()

	if readErr := v.ReadInConfig(); readErr != nil {
		if _, ok := readErr.(viper.ConfigFileNotFoundError); !ok {
			err = fmt.Errorf("error reading config file: %w", readErr)
		}
		ConfigLoaded = false
		ConfigFile = ""
	} else {
		ConfigLoaded = true
		ConfigFile = v.ConfigFileUsed()
	}

	if unmarshalErr := v.Unmarshal(&Instance); unmarshalErr != nil {
		return fmt.Errorf("error parsing config: %w", unmarshalErr)
	}

	ensureDirectories()
	return err
}

// setDefaults sets default values for configuration
func setDefaults(v *viper.Viper) {
	v.SetDefault("debug", false)
	v.SetDefault("log_format", "human")

	logDir, err := fsutil.GetLogDir(AppName)
	if err == nil {
		v.SetDefault("log_file", filepath.Join(logDir, "walkthrough.log"))
	} else {
		v.SetDefault("log_file", "logs/walkthrough.log")
	}

	v.SetDefault("paths.workflows_dir", "wallets")
	v.SetDefault("paths.staging_dir", filepath.Join("output", "staging"))
	v.SetDefault("paths.output_dir", "output")
	v.SetDefault("paths.history_dir", filepath.Join("output", ".history"))
	v.SetDefault("paths.state_db", filepath.Join("output", ".walkthrough.db"))

	v.SetDefault("automation.startup_wait", 3.0)
	v.SetDefault("automation.screenshot_delay", 1.0)
	v.SetDefault("automation.implicit_wait", 10.0)
	v.SetDefault("automation.wait_before", 0.5)
	v.SetDefault("automation.wait_after", 0.5)
	v.SetDefault("automation.scale_factor", 2.0)
	v.SetDefault("automation.pointer.input_scale", 1.0)
	v.SetDefault("automation.pointer.launch", "open -a {{quote .App}}")
	v.SetDefault("automation.pointer.click", "cliclick {{if ge .Clicks 3}}tc{{else if eq .Clicks 2}}dc{{else}}c{{end}}:{{.X}},{{.Y}}")
	v.SetDefault("automation.pointer.type", "cliclick t:{{quote .Text}}")
	v.SetDefault("automation.pointer.screenshot", "screencapture -x {{quote .Path}}")
	v.SetDefault("automation.element.driver", "webdriver")
	v.SetDefault("automation.element.webdriver_url", "http://127.0.0.1:4723")
	v.SetDefault("automation.element.cdp_url", "")
	v.SetDefault("automation.element.browser_bin", "")

	v.SetDefault("documentation.screenshot_max_height", 600)
	v.SetDefault("documentation.index_title", "Wallet Documentation")

	v.SetDefault("review.archive_format", "xz")
	v.SetDefault("review.keep_history", true)

	v.SetDefault("storage.provider", "")
	v.SetDefault("storage.gcp.prefix", "")
	v.SetDefault("storage.gcp.concurrency", 8)

	v.SetDefault("preview.listen", "127.0.0.1:8089")
}

// addSearchPaths adds config search paths
func addSearchPaths(v *viper.Viper) {
	v.AddConfigPath(".")

	if isRunningInPipeline() {
		v.AddConfigPath("/etc/" + AppName)
		return
	}

	configDir, err := fsutil.GetConfigDir(AppName)
	if err == nil {
		v.AddConfigPath(configDir)
	}
}

// ensureDirectories creates necessary directories based on configuration
func ensureDirectories() {
	if isRunningInPipeline() && os.Getenv("CREATE_DIRS") != "true" {
		return
	}

	if Instance.LogFile != "" {
		_ = fsutil.CreateDirIfNotExists(filepath.Dir(Instance.LogFile))
	}
}

// isRunningInPipeline returns true if running in a CI/CD pipeline environment
func isRunningInPipeline() bool {
	return os.Getenv("CI") == "true" ||
		os.Getenv("PIPELINE") == "true" ||
		os.Getenv("GITHUB_ACTIONS") == "true" ||
		os.Getenv("JENKINS_URL") != ""
}
