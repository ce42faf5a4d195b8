package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestLoadQueryDefaults_Success(t *testing.T) {
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "query.yaml")

	configContent := `query:
  top_k: 40
  chunk_top_k: 10
  response_type: "Bullet Points"
  enable_rerank: false

llm:
  max_tokens: 1024
  temperature: 0.2
`

	if err := os.WriteFile(configPath, []byte(configContent), 0644); err != nil {
		t.Fatalf("Failed to write test config: %v", err)
	}

	t.Setenv("QUERY_DEFAULTS_PATH", configPath)

	cfg, err := LoadQueryDefaults()
	if err != nil {
		t.Fatalf("LoadQueryDefaults() failed: %v", err)
	}

	if cfg.Query.TopK != 40 {
		t.Errorf("Expected top_k 40, got %d", cfg.Query.TopK)
	}
	if cfg.Query.ChunkTopK != 10 {
		t.Errorf("Expected chunk_top_k 10, got %d", cfg.Query.ChunkTopK)
	}
	if cfg.Query.ResponseType != "Bullet Points" {
		t.Errorf("Expected response_type 'Bullet Points', got %q", cfg.Query.ResponseType)
	}
	if *cfg.Query.EnableRerank {
		t.Error("Expected enable_rerank false to be kept")
	}
	if cfg.LLM.MaxTokens != 1024 {
		t.Errorf("Expected llm.max_tokens 1024, got %d", cfg.LLM.MaxTokens)
	}
	// untouched fields get defaults
	if cfg.Query.MaxTotalTokens != 30000 {
		t.Errorf("Expected default max_total_tokens 30000, got %d", cfg.Query.MaxTotalTokens)
	}
	if cfg.Keywords.MaxTokens != 256 {
		t.Errorf("Expected default keywords.max_tokens 256, got %d", cfg.Keywords.MaxTokens)
	}
}

func TestLoadQueryDefaults_MissingExplicitFile(t *testing.T) {
	t.Setenv("QUERY_DEFAULTS_PATH", filepath.Join(t.TempDir(), "missing.yaml"))

	if _, err := LoadQueryDefaults(); err == nil {
		t.Fatal("Expected error for missing explicit config file")
	}
}

func TestLoadQueryDefaults_MissingDefaultFile(t *testing.T) {
	t.Setenv("QUERY_DEFAULTS_PATH", "")
	t.Chdir(t.TempDir())

	cfg, err := LoadQueryDefaults()
	if err != nil {
		t.Fatalf("Expected built-in defaults, got error: %v", err)
	}
	if cfg.Query.TopK != 60 {
		t.Errorf("Expected default top_k 60, got %d", cfg.Query.TopK)
	}
}

func TestLoadQueryDefaults_InvalidYAML(t *testing.T) {
	configPath := filepath.Join(t.TempDir(), "query.yaml")
	if err := os.WriteFile(configPath, []byte("query: [unclosed"), 0644); err != nil {
		t.Fatalf("Failed to write test config: %v", err)
	}
	t.Setenv("QUERY_DEFAULTS_PATH", configPath)

	if _, err := LoadQueryDefaults(); err == nil {
		t.Fatal("Expected parse error")
	}
}

func TestQueryDefaults_Validate(t *testing.T) {
	cfg := Default()
	if err := cfg.Validate(); err != nil {
		t.Fatalf("Default config should be valid: %v", err)
	}

	cfg.Query.TopK = -1
	cfg.LLM.Temperature = 1.5
	cfg.Query.MaxEntityTokens = 50000
	if err := cfg.Validate(); err == nil {
		t.Fatal("Expected validation errors")
	}
}
