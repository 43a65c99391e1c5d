// Package backup describes the data a finished workflow hands to a transfer
// service: which paths go to which remote endpoints once the run is done.
// The transfer itself is done by an external agent reading backup.json.
package backup

import (
	"encoding/json"
	"fmt"
	"os"
	"sort"
	"strings"

	"github.com/ehsaniara/hpcompose/internal/hpcompose/app"
	"github.com/ehsaniara/hpcompose/pkg/errors"

	"github.com/google/renameio"
	"github.com/mitchellh/go-homedir"
)

// FileName is the manifest's name inside a run directory.
const FileName = "backup.json"

// DefaultSourceEndpointFile holds the endpoint ID of the host runs start on.
const DefaultSourceEndpointFile = "~/.hpcompose-source-endpoint"

// Entry is one path to send.
type Entry struct {
	InPath  string `json:"inpath" yaml:"path"`
	OutPath string `json:"outpath" yaml:"outpath"`
	Link    bool   `json:"link" yaml:"-"`
	Rename  string `json:"rename,omitempty" yaml:"rename,omitempty"`
}

// SendData builds an entry copying path to outpath on the endpoint,
// optionally renamed. Backups never link.
func SendData(path, outpath, rename string) (Entry, error) {
	if path == "" {
		return Entry{}, fmt.Errorf("%w: backup entry needs a path", errors.ErrInvalidConfig)
	}
	if outpath == "" {
		return Entry{}, fmt.Errorf("%w: backup entry %s needs an outpath", errors.ErrInvalidConfig, path)
	}
	return Entry{InPath: path, OutPath: outpath, Rename: rename}, nil
}

// FromInput converts a workflow input into a backup entry.
func FromInput(in app.Input) (Entry, error) {
	return SendData(in.Path, in.OutPath, in.Rename)
}

// Destination is a remote endpoint and the paths sent to it.
type Destination struct {
	ID    string  `json:"id"`
	Paths []Entry `json:"paths"`
}

// Add appends entries to the destination.
func (d *Destination) Add(entries ...Entry) {
	d.Paths = append(d.Paths, entries...)
}

// Manifest is the content of backup.json.
type Manifest struct {
	// ReadyFile appears when the workflow finished; transfers wait for it.
	ReadyFile         string                 `json:"readyfile"`
	Source            string                 `json:"source"`
	RecursiveSymlinks string                 `json:"recursive_symlinks"`
	Endpoints         map[string]Destination `json:"endpoints"`
}

// NewManifest returns an empty manifest.
func NewManifest(readyFile, source string) *Manifest {
	return &Manifest{
		ReadyFile:         readyFile,
		Source:            source,
		RecursiveSymlinks: "ignore",
		Endpoints:         map[string]Destination{},
	}
}

// Set stores the destination under name.
func (m *Manifest) Set(name string, d Destination) {
	m.Endpoints[name] = d
}

// Names lists the destination names in sorted order.
func (m *Manifest) Names() []string {
	names := make([]string, 0, len(m.Endpoints))
	for name := range m.Endpoints {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Empty is true when there is nothing to send.
func (m *Manifest) Empty() bool {
	return len(m.Endpoints) == 0
}

func (m *Manifest) Validate() error {
	if m.Source == "" {
		return fmt.Errorf("%w: backup has no source endpoint", errors.ErrInvalidConfig)
	}
	for _, name := range m.Names() {
		d := m.Endpoints[name]
		if d.ID == "" {
			return fmt.Errorf("%w: backup destination %s has no endpoint id", errors.ErrInvalidConfig, name)
		}
		for _, e := range d.Paths {
			if e.OutPath == "" {
				return fmt.Errorf("%w: backup destination %s: %s has no outpath", errors.ErrInvalidConfig, name, e.InPath)
			}
		}
	}
	return nil
}

// Write stores the manifest as indented JSON, replacing path atomically.
func (m *Manifest) Write(path string) error {
	if err := m.Validate(); err != nil {
		return err
	}
	data, err := json.MarshalIndent(m, "", "    ")
	if err != nil {
		return fmt.Errorf("failed to encode backup manifest: %w", err)
	}
	if err := renameio.WriteFile(path, append(data, '\n'), 0o644); err != nil {
		return errors.NewFilesystemError(path, "write", err)
	}
	return nil
}

// Read loads a manifest written by Write.
func Read(path string) (*Manifest, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.NewFilesystemError(path, "read", err)
	}
	var m Manifest
	if err := json.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("backup manifest %s: %w", path, err)
	}
	if m.Endpoints == nil {
		m.Endpoints = map[string]Destination{}
	}
	return &m, nil
}

// SourceEndpoint reads the source endpoint ID from file, "~" expanded.
// An empty file name reads DefaultSourceEndpointFile.
func SourceEndpoint(file string) (string, error) {
	if file == "" {
		file = DefaultSourceEndpointFile
	}
	path, err := homedir.Expand(file)
	if err != nil {
		return "", errors.NewConfigError("backup", "source_endpoint_file", err)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return "", errors.NewConfigError("backup", "source_endpoint_file",
				fmt.Errorf("%s does not exist; write the source endpoint id into it", path))
		}
		return "", errors.NewFilesystemError(path, "read", err)
	}
	id := strings.TrimSpace(string(data))
	if id == "" {
		return "", errors.NewConfigError("backup", "source_endpoint_file", fmt.Errorf("%s is empty", path))
	}
	return id, nil
}
