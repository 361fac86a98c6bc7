package config

import "fmt"

// PersonaConfig tells the relay where to find its persona text.
type PersonaConfig struct {
	Backend  string `env:"PERSONA_BACKEND" yaml:"backend" default:"local"` // "local" or "s3"
	Dir      string `env:"PERSONA_DIR" yaml:"dir" default:"./prompts"`
	File     string `env:"PERSONA_FILE" yaml:"file" default:"persona.md"`
	S3Bucket string `env:"PERSONA_S3_BUCKET" yaml:"s3_bucket"`
	S3Prefix string `env:"PERSONA_S3_PREFIX" yaml:"s3_prefix"`
	S3Region string `env:"PERSONA_S3_REGION" yaml:"s3_region"`
}

func (c PersonaConfig) Validate() error {
	switch c.Backend {
	case "local":
	case "s3":
		if c.S3Bucket == "" {
			return fmt.Errorf("PERSONA_S3_BUCKET is required for the s3 persona backend")
		}
	default:
		return fmt.Errorf("persona backend must be either 'local' or 's3', got %q", c.Backend)
	}
	return nil
}
