// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package config loads the merger's operational knobs from a YAML file,
// validated against struct tags. The CLI reads the file named by --config
// (or uses Default when none is given); no CLI flag overrides a knob.
package config

import (
	"fmt"
	"os"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"

	"github.com/AleutianAI/chamerge/internal/resolver"
)

// MaxYAMLFileSize bounds the config file read, guarding against an
// accidentally-pointed-at-the-wrong-file mistake rather than a real size
// need — no legitimate config file approaches this.
const MaxYAMLFileSize = 1024 * 1024

// Config is the merger's operational configuration, spec.md section 6.
type Config struct {
	DynamicSitePolicy string `yaml:"dynamic-site-policy" validate:"omitempty,oneof=warn drop fail"`
	MissingDepPolicy  string `yaml:"missing-dep-policy" validate:"omitempty,oneof=skip fail"`
	InternTypeURIs    *bool  `yaml:"intern-type-uris"`

	ClosureCache ClosureCacheConfig `yaml:"closure-cache"`
	GCS          GCSConfig          `yaml:"gcs"`
}

// ClosureCacheConfig configures the in-process and optional on-disk closure
// cache (internal/closurecache, internal/store/badgerkv).
type ClosureCacheConfig struct {
	MaxEntries int    `yaml:"max-entries" validate:"omitempty,gte=0"`
	BadgerPath string `yaml:"badger-path"`
}

// GCSConfig configures the optional GCS-backed GraphStore / snapshot sink.
type GCSConfig struct {
	Bucket                string `yaml:"bucket"`
	ServiceAccountKeyPath string `yaml:"service-account-key-path" validate:"required_with=Bucket"`
}

// Default returns the configuration spec.md section 6 specifies when no
// file or flag overrides a knob.
func Default() Config {
	internAll := true
	return Config{
		DynamicSitePolicy: "warn",
		MissingDepPolicy:  "skip",
		InternTypeURIs:    &internAll,
		ClosureCache:      ClosureCacheConfig{MaxEntries: 32},
	}
}

// Load reads and validates a YAML config file at path, starting from
// Default() so an omitted field keeps its default rather than zeroing out.
func Load(path string) (Config, error) {
	info, err := os.Stat(path)
	if err != nil {
		return Config{}, fmt.Errorf("config: stat %s: %w", path, err)
	}
	if info.Size() > MaxYAMLFileSize {
		return Config{}, fmt.Errorf("config: %s exceeds max size of %d bytes", path, MaxYAMLFileSize)
	}

	raw, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("config: read %s: %w", path, err)
	}

	cfg := Default()
	if err := yaml.Unmarshal(raw, &cfg); err != nil {
		return Config{}, fmt.Errorf("config: parse %s: %w", path, err)
	}

	if err := validator.New().Struct(cfg); err != nil {
		return Config{}, fmt.Errorf("config: %s failed validation: %w", path, err)
	}
	return cfg, nil
}

// DynamicSitePolicyValue maps the YAML string knob to the resolver's enum.
func (c Config) DynamicSitePolicyValue() (resolver.DynamicSitePolicy, error) {
	switch c.DynamicSitePolicy {
	case "", "warn":
		return resolver.PolicyWarn, nil
	case "drop":
		return resolver.PolicyDrop, nil
	case "fail":
		return resolver.PolicyFail, nil
	default:
		return 0, fmt.Errorf("config: unrecognized dynamic-site-policy %q", c.DynamicSitePolicy)
	}
}

// MissingDepPolicy is the recognized value set for the missing-dep-policy knob.
type MissingDepPolicy string

const (
	MissingDepSkip MissingDepPolicy = "skip"
	MissingDepFail MissingDepPolicy = "fail"
)

// MissingDepPolicyValue maps the YAML string knob to MissingDepPolicy.
func (c Config) MissingDepPolicyValue() (MissingDepPolicy, error) {
	switch c.MissingDepPolicy {
	case "", "skip":
		return MissingDepSkip, nil
	case "fail":
		return MissingDepFail, nil
	default:
		return "", fmt.Errorf("config: unrecognized missing-dep-policy %q", c.MissingDepPolicy)
	}
}

// InternTypeURIsValue reports the intern-type-uris knob, defaulting to true
// when unset.
func (c Config) InternTypeURIsValue() bool {
	if c.InternTypeURIs == nil {
		return true
	}
	return *c.InternTypeURIs
}
