package config

import (
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

type FirestoreConfig struct {
	ProjectID       string `yaml:"project_id"`
	CredentialsFile string `yaml:"credentials_file"`
}

type ClassifierConfig struct {
	PhrasesCSV string `yaml:"phrases_csv"`
}

type VoiceConfig struct {
	APIURL       string `yaml:"api_url"`
	GatewayWSURL string `yaml:"gateway_ws_url"`
	APIKey       string `yaml:"api_key"`
}

type AgentConfig struct {
	Greeting            string `yaml:"greeting"`
	CloseOnEscalation   bool   `yaml:"close_on_escalation"`
	PollIntervalSeconds int    `yaml:"poll_interval_seconds"`
	UseAssistant        bool   `yaml:"use_assistant"`
	AssistantBaseURL    string `yaml:"assistant_base_url"`
	AssistantModel      string `yaml:"assistant_model"`
}

// PollInterval is the disconnect monitor's polling period.
func (a AgentConfig) PollInterval() time.Duration {
	return time.Duration(a.PollIntervalSeconds) * time.Second
}

type AdminConfig struct {
	BasicUser        string `yaml:"basic_user"`
	BasicPass        string `yaml:"basic_pass"`
	RecentCallsLimit int    `yaml:"recent_calls_limit"`
}

type Config struct {
	ListenAddr       string           `yaml:"listen_addr"`
	Firestore        FirestoreConfig  `yaml:"firestore"`
	Classifier       ClassifierConfig `yaml:"classifier"`
	BusinessInfoPath string           `yaml:"business_info_path"`
	Voice            VoiceConfig      `yaml:"voice"`
	Agent            AgentConfig      `yaml:"agent"`
	Admin            AdminConfig      `yaml:"admin"`
}

func Load(path string) (*Config, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	dec := yaml.NewDecoder(f)
	var cfg Config
	if err := dec.Decode(&cfg); err != nil {
		return nil, err
	}

	if cfg.ListenAddr == "" {
		cfg.ListenAddr = ":8080"
	}
	if cfg.Classifier.PhrasesCSV == "" {
		cfg.Classifier.PhrasesCSV = "configs/help.csv"
	}
	if cfg.BusinessInfoPath == "" {
		cfg.BusinessInfoPath = "configs/salon_info.json"
	}
	if cfg.Agent.PollIntervalSeconds <= 0 {
		cfg.Agent.PollIntervalSeconds = 2
	}
	if cfg.Admin.RecentCallsLimit <= 0 {
		cfg.Admin.RecentCallsLimit = 100
	}

	// Secrets may come from the environment instead of the yaml file.
	if v := os.Getenv("FIRESTORE_PROJECT_ID"); v != "" {
		cfg.Firestore.ProjectID = v
	}
	if v := os.Getenv("FIRESTORE_CREDENTIALS_FILE"); v != "" {
		cfg.Firestore.CredentialsFile = v
	}
	if v := os.Getenv("VOICE_API_KEY"); v != "" {
		cfg.Voice.APIKey = v
	}
	if v := os.Getenv("ADMIN_BASIC_PASS"); v != "" {
		cfg.Admin.BasicPass = v
	}

	return &cfg, nil
}
