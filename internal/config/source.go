package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

// Environment variables that locate the config directory.
const (
	ConfigDirEnv     = "PGMIGRATOR_CONFIG_DIR"
	AppEnvVar        = "APP_ENV"
	DefaultConfigDir = "./config"
	DefaultAppEnv    = "development"
)

// LoadFile decodes a config file. Files ending in .json are read as JSON,
// everything else as YAML. An empty file decodes to nil.
func LoadFile(path string) (any, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config file: %w", err)
	}

	var v any
	if strings.EqualFold(filepath.Ext(path), ".json") {
		if len(strings.TrimSpace(string(data))) == 0 {
			return nil, nil
		}
		err = json.Unmarshal(data, &v)
	} else {
		err = yaml.Unmarshal(data, &v)
	}
	if err != nil {
		return nil, fmt.Errorf("parsing config file %s: %w", path, err)
	}
	return v, nil
}

// SectionLocation returns the config directory and environment name from
// PGMIGRATOR_CONFIG_DIR and APP_ENV, with their defaults.
func SectionLocation(lookupEnv func(string) (string, bool)) (dir, env string) {
	dir, env = DefaultConfigDir, DefaultAppEnv
	if lookupEnv == nil {
		return dir, env
	}
	if v, ok := lookupEnv(ConfigDirEnv); ok && v != "" {
		dir = v
	}
	if v, ok := lookupEnv(AppEnvVar); ok && v != "" {
		env = v
	}
	return dir, env
}

// LoadSection merges default.*, <env>.* and local.* from dir (each may be
// .json, .yaml or .yml, later files win, maps merge deeply) and returns the
// value at the dotted path name. It returns nil, nil when dir has no config
// files or the section is missing.
func LoadSection(dir, env, name string) (any, error) {
	merged := map[string]any{}
	found := false
	for _, base := range []string{"default", env, "local"} {
		if base == "" {
			continue
		}
		for _, ext := range []string{".json", ".yaml", ".yml"} {
			path := filepath.Join(dir, base+ext)
			v, err := LoadFile(path)
			if errors.Is(err, fs.ErrNotExist) {
				continue
			}
			if err != nil {
				return nil, err
			}
			if v == nil {
				continue
			}
			obj, ok := asObject(v)
			if !ok {
				return nil, fmt.Errorf("config file %s: top level must be a mapping", path)
			}
			deepMerge(merged, obj)
			found = true
		}
	}
	if !found {
		return nil, nil
	}
	return lookupPath(merged, name), nil
}

// deepMerge copies src into dst, merging nested maps instead of replacing them.
func deepMerge(dst, src map[string]any) {
	for k, v := range src {
		srcObj, srcIsObj := asObject(v)
		dstObj, dstIsObj := asObject(dst[k])
		if srcIsObj && dstIsObj {
			merged := make(map[string]any, len(dstObj))
			deepMerge(merged, dstObj)
			deepMerge(merged, srcObj)
			dst[k] = merged
			continue
		}
		dst[k] = v
	}
}

func lookupPath(obj map[string]any, path string) any {
	var cur any = obj
	for _, part := range strings.Split(path, ".") {
		m, ok := asObject(cur)
		if !ok {
			return nil
		}
		if cur, ok = m[part]; !ok {
			return nil
		}
	}
	return cur
}
