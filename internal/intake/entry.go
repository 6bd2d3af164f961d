// Package intake turns submitted batches into provisioning records. Batches
// arrive as JSON from the API or as YAML/JSON files from the CLI.
package intake

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"unicode"

	"gopkg.in/yaml.v3"

	"oap/internal/provision"
)

// Entry is one record of a submitted batch.
type Entry struct {
	RequestID     string `json:"requestId" yaml:"requestId"`
	ExternalID    string `json:"externalId" yaml:"externalId"`
	WWID          string `json:"wwid" yaml:"wwid"`
	UserID        string `json:"userId" yaml:"userId"`
	Email         string `json:"email" yaml:"email"`
	Controller    string `json:"controller" yaml:"controller"`
	SUT           string `json:"sut" yaml:"sut"`
	Location      string `json:"location" yaml:"location"`
	Kit           string `json:"kit" yaml:"kit"`
	IFWIBinary    string `json:"ifwiBinary" yaml:"ifwiBinary"`
	BIOSFile      string `json:"biosFile" yaml:"biosFile"`
	WIMName       string `json:"wimName" yaml:"wimName"`
	WiFiName      string `json:"wifiName" yaml:"wifiName"`
	WiFiPassword  string `json:"wifiPassword" yaml:"wifiPassword"`
	SharePath     string `json:"sharePath" yaml:"sharePath"`
	ShareUser     string `json:"shareUser" yaml:"shareUser"`
	SharePassword string `json:"sharePassword" yaml:"sharePassword"`
}

// Record converts the entry into an unsaved record with trimmed fields.
func (e Entry) Record() provision.Record {
	return provision.Record{
		RequestID:     strings.TrimSpace(e.RequestID),
		ExternalID:    strings.TrimSpace(e.ExternalID),
		WWID:          strings.TrimSpace(e.WWID),
		UserID:        strings.TrimSpace(e.UserID),
		Email:         strings.TrimSpace(e.Email),
		Controller:    strings.TrimSpace(e.Controller),
		SUT:           strings.TrimSpace(e.SUT),
		Location:      strings.TrimSpace(e.Location),
		Kit:           strings.TrimSpace(e.Kit),
		IFWIBinary:    strings.TrimSpace(e.IFWIBinary),
		BIOSFile:      strings.TrimSpace(e.BIOSFile),
		WIMName:       strings.TrimSpace(e.WIMName),
		WiFiName:      strings.TrimSpace(e.WiFiName),
		WiFiPassword:  e.WiFiPassword,
		SharePath:     strings.TrimSpace(e.SharePath),
		ShareUser:     strings.TrimSpace(e.ShareUser),
		SharePassword: e.SharePassword,
	}
}

// headerField returns the first field that reaches notification headers and
// carries a control character, or "" when the entry is clean.
func (e Entry) headerField() string {
	fields := []struct{ name, value string }{
		{"requestId", e.RequestID},
		{"externalId", e.ExternalID},
		{"email", e.Email},
		{"sut", e.SUT},
	}
	for _, f := range fields {
		if strings.IndexFunc(f.value, unicode.IsControl) >= 0 {
			return f.name
		}
	}
	return ""
}

// batchFile is the keyed file layout; a bare list is accepted too.
type batchFile struct {
	Records []Entry `json:"records" yaml:"records"`
}

// DecodeJSON reads a JSON array of entries.
func DecodeJSON(r io.Reader) ([]Entry, error) {
	var entries []Entry
	if err := json.NewDecoder(r).Decode(&entries); err != nil {
		return nil, fmt.Errorf("decode batch: %w: %w", provision.ErrInvalidInput, err)
	}
	return entries, nil
}

// DecodeYAML reads entries from YAML, either a list or a mapping with a
// records key.
func DecodeYAML(data []byte) ([]Entry, error) {
	var node yaml.Node
	if err := yaml.Unmarshal(data, &node); err != nil {
		return nil, fmt.Errorf("decode batch: %w: %w", provision.ErrInvalidInput, err)
	}
	if len(node.Content) == 0 {
		return nil, nil
	}
	root := node.Content[0]
	switch root.Kind {
	case yaml.SequenceNode:
		var entries []Entry
		if err := root.Decode(&entries); err != nil {
			return nil, fmt.Errorf("decode batch: %w: %w", provision.ErrInvalidInput, err)
		}
		return entries, nil
	case yaml.MappingNode:
		var file batchFile
		if err := root.Decode(&file); err != nil {
			return nil, fmt.Errorf("decode batch: %w: %w", provision.ErrInvalidInput, err)
		}
		return file.Records, nil
	}
	return nil, fmt.Errorf("decode batch: %w: expected a list of records", provision.ErrInvalidInput)
}

// ReadFile loads a batch file. ".json" files are decoded as JSON and
// everything else as YAML.
func ReadFile(path string) ([]Entry, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read batch file: %w", err)
	}
	if strings.EqualFold(filepath.Ext(path), ".json") {
		return DecodeJSON(bytes.NewReader(data))
	}
	return DecodeYAML(data)
}
