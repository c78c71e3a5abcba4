// Package config is a flat key/value store addressed by dotted paths, filled
// from TOML files.
package config

import (
	"fmt"
	"io"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/pkg/errors"
)

// Separator joins the elements of a path.
const Separator = "."

// Config holds the resolved options. It is safe for concurrent use.
type Config struct {
	mu      sync.RWMutex
	options map[string]Entry
}

// Entry is one stored option.
type Entry struct {
	Path  []string
	Value string
	// Bool marks values stored as booleans.
	Bool bool
}

// New returns an empty store.
func New() *Config {
	return &Config{options: make(map[string]Entry)}
}

// Key joins path elements into a key.
func Key(path ...string) string {
	return strings.Join(path, Separator)
}

// Load reads a TOML file and stores each leaf under its dotted path,
// replacing values already present.
func (c *Config) Load(filename string) error {
	var tree map[string]interface{}
	if _, err := toml.DecodeFile(filename, &tree); err != nil {
		return errors.Wrapf(err, "load %s", filename)
	}
	c.merge(tree)
	return nil
}

// Read is Load for an already opened document.
func (c *Config) Read(r io.Reader) error {
	var tree map[string]interface{}
	if _, err := toml.NewDecoder(r).Decode(&tree); err != nil {
		return errors.Wrap(err, "decode")
	}
	c.merge(tree)
	return nil
}

func (c *Config) merge(tree map[string]interface{}) {
	flat := make(map[string]Entry)
	flatten(nil, tree, flat)

	c.mu.Lock()
	defer c.mu.Unlock()
	for k, v := range flat {
		c.options[k] = v
	}
}

func flatten(path []string, v interface{}, out map[string]Entry) {
	switch v := v.(type) {
	case map[string]interface{}:
		for k, child := range v {
			flatten(join(path, k), child, out)
		}
	case []map[string]interface{}:
		for i, child := range v {
			flatten(join(path, fmt.Sprint(i)), child, out)
		}
	case []interface{}:
		for i, child := range v {
			flatten(join(path, fmt.Sprint(i)), child, out)
		}
	default:
		_, isBool := v.(bool)
		out[Key(path...)] = Entry{Path: path, Value: format(v), Bool: isBool}
	}
}

func join(path []string, key string) []string {
	return append(path[:len(path):len(path)], key)
}

func format(v interface{}) string {
	switch v := v.(type) {
	case string:
		return v
	case bool:
		if v {
			return "true"
		}
		return "false"
	case int64:
		return fmt.Sprintf("%d", v)
	case float64:
		return fmt.Sprintf("%.6g", v)
	case time.Time:
		return v.Format(time.RFC3339Nano)
	default:
		return fmt.Sprint(v)
	}
}

// Get returns the value stored under path.
func (c *Config) Get(path ...string) (string, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	e, ok := c.options[Key(path...)]
	return e.Value, ok
}

// GetDefault returns the value stored under path, or def.
func (c *Config) GetDefault(def string, path ...string) string {
	if v, ok := c.Get(path...); ok {
		return v
	}
	return def
}

// GetBool reports whether the value under path is "true".
func (c *Config) GetBool(path ...string) bool {
	v, _ := c.Get(path...)
	return v == "true"
}

// Set stores value under path.
func (c *Config) Set(value string, path ...string) {
	c.set(Entry{Path: path, Value: value})
}

// SetBool stores a boolean under path.
func (c *Config) SetBool(value bool, path ...string) {
	c.set(Entry{Path: path, Value: format(value), Bool: true})
}

func (c *Config) set(e Entry) {
	e.Path = append([]string(nil), e.Path...)
	c.mu.Lock()
	defer c.mu.Unlock()
	c.options[Key(e.Path...)] = e
}

// Walk calls fn for every stored option in key order. fn may modify the
// store.
func (c *Config) Walk(fn func(e Entry)) {
	c.mu.RLock()
	keys := make([]string, 0, len(c.options))
	for k := range c.options {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	entries := make([]Entry, len(keys))
	for i, k := range keys {
		entries[i] = c.options[k]
	}
	c.mu.RUnlock()

	for _, e := range entries {
		fn(e)
	}
}

// Enumerate calls fn with the key and value of every stored option in key
// order.
func (c *Config) Enumerate(fn func(path, value string)) {
	c.Walk(func(e Entry) {
		fn(Key(e.Path...), e.Value)
	})
}
