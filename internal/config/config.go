package config

// Playlist configuration loading and validation for flowmod

import (
	"encoding/hex"
	"fmt"
	"math"
	"net"
	"os"
	"strings"
	"time"

	"github.com/c2h5oh/datasize"
	"github.com/gobwas/glob"
	"gopkg.in/yaml.v3"

	"github.com/tturner/flowmod/internal/errors"
	"github.com/tturner/flowmod/internal/modifier"
)

// MaxFrameLen bounds variable offsets; it matches the pcap snap length.
const MaxFrameLen = 65535

// Mode represents how a variable produces its values
type Mode string

const (
	ModeIncrement Mode = "increment"
	ModeDecrement Mode = "decrement"
	ModeRandom    Mode = "random"
	ModeTable     Mode = "table"
)

// VariableConfig describes one generated field of a flow's frame
type VariableConfig struct {
	Index   uint8    `yaml:"index"`
	Name    string   `yaml:"name,omitempty"`
	Mode    Mode     `yaml:"mode"`
	Offset  int      `yaml:"offset"`            // byte offset in the frame
	Start   string   `yaml:"start,omitempty"`   // hex, most significant byte first
	Step    string   `yaml:"step,omitempty"`    // hex, defaults to 1
	Mask    string   `yaml:"mask,omitempty"`    // hex, defaults to all ones
	Stutter int32    `yaml:"stutter,omitempty"` // extra repeats per value
	Recycle *uint32  `yaml:"recycle,omitempty"` // distinct values per cycle; omitted = 2^32-1, 0 = constant
	Table   []string `yaml:"table,omitempty"`   // hex entries for table mode
	Reverse bool     `yaml:"reverse,omitempty"` // write least significant byte first
}

// LinkConfig chains child as the next digit of parent
type LinkConfig struct {
	Parent uint8 `yaml:"parent"`
	Child  uint8 `yaml:"child"`
}

// FrameConfig describes the base frame variables are patched into
type FrameConfig struct {
	SrcMAC      string `yaml:"src_mac"`
	DstMAC      string `yaml:"dst_mac"`
	SrcIP       string `yaml:"src_ip"`
	DstIP       string `yaml:"dst_ip"`
	Protocol    string `yaml:"protocol"` // "udp" or "tcp"
	SrcPort     uint16 `yaml:"src_port"`
	DstPort     uint16 `yaml:"dst_port"`
	TTL         uint8  `yaml:"ttl,omitempty"`
	PayloadSize int    `yaml:"payload_size,omitempty"`
	PayloadHex  string `yaml:"payload_hex,omitempty"` // overrides payload_size
}

// FlowConfig is one flow of the playlist
type FlowConfig struct {
	Name      string           `yaml:"name"`
	Frame     FrameConfig      `yaml:"frame"`
	Variables []VariableConfig `yaml:"variables"`
	Links     []LinkConfig     `yaml:"links,omitempty"`
}

// GenerateConfig controls the iteration range
type GenerateConfig struct {
	Packets    uint64        `yaml:"packets"`
	StartIndex uint64        `yaml:"start_index,omitempty"`
	Workers    int           `yaml:"workers,omitempty"`
	Flows      []string      `yaml:"flows,omitempty"`    // glob patterns over flow names
	Interval   time.Duration `yaml:"interval,omitempty"` // pcap timestamp spacing per iteration
}

// OutputConfig controls where generated traffic goes
type OutputConfig struct {
	PCAP               string            `yaml:"pcap"`
	MaxSize            datasize.ByteSize `yaml:"max_size,omitempty"` // 0 = unlimited
	RecomputeChecksums *bool             `yaml:"recompute_checksums,omitempty"`
	MetricsCSV         string            `yaml:"metrics_csv,omitempty"`
	ArtifactsDir       string            `yaml:"artifacts_dir,omitempty"` // run.json + summary.txt
}

// LoggingConfig controls logging output
type LoggingConfig struct {
	Level     string `yaml:"level,omitempty"`  // "silent","error","info","verbose","debug"
	Format    string `yaml:"format,omitempty"` // "text" or "json"
	LogEveryN int    `yaml:"log_every_n,omitempty"`
	LogFile   string `yaml:"log_file,omitempty"`
}

// Config represents a flowmod playlist
type Config struct {
	Seed     uint32         `yaml:"seed"`
	Generate GenerateConfig `yaml:"generate"`
	Output   OutputConfig   `yaml:"output"`
	Logging  LoggingConfig  `yaml:"logging,omitempty"`
	Flows    []FlowConfig   `yaml:"flows"`
}

// CreateDefaultConfig creates a default playlist
func CreateDefaultConfig() *Config {
	cfg := &Config{
		Seed: 0x12345678,
		Generate: GenerateConfig{
			Packets: 1000,
			Workers: 1,
		},
		Output: OutputConfig{
			PCAP: "flowmod.pcap",
		},
		Flows: []FlowConfig{
			{
				Name: "udp-sweep",
				Frame: FrameConfig{
					SrcMAC:      "02:00:00:00:00:01",
					DstMAC:      "02:00:00:00:00:02",
					SrcIP:       "10.0.0.1",
					DstIP:       "10.0.1.1",
					Protocol:    "udp",
					SrcPort:     40000,
					DstPort:     9000,
					PayloadSize: 32,
				},
				Variables: []VariableConfig{
					{Index: 0, Name: "src_ip", Mode: ModeIncrement, Offset: 26, Start: "0a000001", Step: "00000001", Mask: "ffffffff", Recycle: recycleCount(16)},
					{Index: 1, Name: "src_port", Mode: ModeRandom, Offset: 34, Mask: "ffff", Recycle: recycleCount(64)},
					{Index: 2, Name: "payload_tag", Mode: ModeTable, Offset: 42, Table: []string{"aa", "bbbb", "cccccc"}, Stutter: 1},
				},
				Links: []LinkConfig{
					{Parent: 0, Child: 1},
				},
			},
		},
	}
	applyDefaults(cfg)
	return cfg
}

// WriteDefaultConfig writes a default playlist to a file
func WriteDefaultConfig(path string) error {
	cfg := CreateDefaultConfig()
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("marshal default config: %w", err)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("write config file: %w", err)
	}
	return nil
}

// LoadConfig loads a playlist from a YAML file
// If the file doesn't exist and autoCreate is true, it will create a default config file
func LoadConfig(path string, autoCreate bool) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if !os.IsNotExist(err) {
			return nil, errors.WrapConfigError(fmt.Errorf("read config file: %w", err), path)
		}
		if !autoCreate {
			return nil, errors.WrapConfigError(fmt.Errorf("config file not found: %s", path), path)
		}
		if err := WriteDefaultConfig(path); err != nil {
			return nil, fmt.Errorf("create default config: %w", err)
		}
		data, err = os.ReadFile(path)
		if err != nil {
			return nil, errors.WrapConfigError(fmt.Errorf("read created config file: %w", err), path)
		}
	}

	cfg, err := ParseConfig(data)
	if err != nil {
		return nil, errors.WrapConfigError(err, path)
	}
	return cfg, nil
}

// ParseConfig decodes, defaults and validates a playlist
func ParseConfig(data []byte) (*Config, error) {
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parse YAML: %w", err)
	}

	applyDefaults(&cfg)

	if err := ValidateConfig(&cfg); err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}
	return &cfg, nil
}

func applyDefaults(cfg *Config) {
	if cfg.Generate.Workers == 0 {
		cfg.Generate.Workers = 1
	}
	if cfg.Generate.Interval == 0 {
		cfg.Generate.Interval = time.Millisecond
	}
	if len(cfg.Generate.Flows) == 0 {
		cfg.Generate.Flows = []string{"*"}
	}
	if cfg.Output.RecomputeChecksums == nil {
		v := true
		cfg.Output.RecomputeChecksums = &v
	}
	if cfg.Logging.Level == "" {
		cfg.Logging.Level = "info"
	}
	if cfg.Logging.Format == "" {
		cfg.Logging.Format = "text"
	}
	if cfg.Logging.LogEveryN == 0 {
		cfg.Logging.LogEveryN = 1
	}
	for i := range cfg.Flows {
		frame := &cfg.Flows[i].Frame
		if frame.Protocol == "" {
			frame.Protocol = "udp"
		}
		if frame.TTL == 0 {
			frame.TTL = 64
		}
	}
}

// ValidateConfig validates a playlist
func ValidateConfig(cfg *Config) error {
	if len(cfg.Flows) == 0 {
		return fmt.Errorf("at least one flow must be configured")
	}
	if len(cfg.Flows) > 1<<16 {
		return fmt.Errorf("too many flows: %d", len(cfg.Flows))
	}
	if cfg.Generate.Packets == 0 {
		return fmt.Errorf("generate.packets must be > 0")
	}
	if cfg.Generate.Workers < 1 {
		return fmt.Errorf("generate.workers must be >= 1")
	}
	if cfg.Generate.Interval < 0 {
		return fmt.Errorf("generate.interval must be >= 0")
	}
	for i, pattern := range cfg.Generate.Flows {
		if _, err := glob.Compile(pattern); err != nil {
			return fmt.Errorf("generate.flows[%d]: invalid pattern '%s': %w", i, pattern, err)
		}
	}
	if cfg.Logging.Format != "" && cfg.Logging.Format != "text" && cfg.Logging.Format != "json" {
		return fmt.Errorf("logging.format must be 'text' or 'json', got '%s'", cfg.Logging.Format)
	}

	names := make(map[string]int, len(cfg.Flows))
	for i, flow := range cfg.Flows {
		if flow.Name == "" {
			return fmt.Errorf("flows[%d]: name is required", i)
		}
		if prev, ok := names[flow.Name]; ok {
			return fmt.Errorf("flows[%d]: name '%s' already used by flows[%d]", i, flow.Name, prev)
		}
		names[flow.Name] = i
		if err := validateFrame(flow.Frame); err != nil {
			return fmt.Errorf("flows[%d] (%s): %w", i, flow.Name, err)
		}
		seen := make(map[uint8]bool, len(flow.Variables))
		for j, v := range flow.Variables {
			if seen[v.Index] {
				return fmt.Errorf("flows[%d] (%s): variables[%d]: index %d assigned twice", i, flow.Name, j, v.Index)
			}
			seen[v.Index] = true
			if err := validateVariable(v); err != nil {
				return fmt.Errorf("flows[%d] (%s): variables[%d]: %w", i, flow.Name, j, err)
			}
		}
		for j, l := range flow.Links {
			if !seen[l.Parent] || !seen[l.Child] {
				return fmt.Errorf("flows[%d] (%s): links[%d]: unknown variable index", i, flow.Name, j)
			}
		}
	}
	return nil
}

func validateFrame(f FrameConfig) error {
	if f.Protocol != "udp" && f.Protocol != "tcp" {
		return fmt.Errorf("frame.protocol must be 'udp' or 'tcp', got '%s'", f.Protocol)
	}
	src := net.ParseIP(f.SrcIP)
	dst := net.ParseIP(f.DstIP)
	if src == nil {
		return fmt.Errorf("frame.src_ip: invalid address '%s'", f.SrcIP)
	}
	if dst == nil {
		return fmt.Errorf("frame.dst_ip: invalid address '%s'", f.DstIP)
	}
	if (src.To4() == nil) != (dst.To4() == nil) {
		return fmt.Errorf("frame.src_ip and frame.dst_ip must be the same address family")
	}
	if _, err := net.ParseMAC(f.SrcMAC); err != nil {
		return fmt.Errorf("frame.src_mac: invalid address '%s'", f.SrcMAC)
	}
	if _, err := net.ParseMAC(f.DstMAC); err != nil {
		return fmt.Errorf("frame.dst_mac: invalid address '%s'", f.DstMAC)
	}
	if f.PayloadSize < 0 {
		return fmt.Errorf("frame.payload_size must be >= 0")
	}
	if _, err := DecodeHex(f.PayloadHex); err != nil {
		return fmt.Errorf("frame.payload_hex: %w", err)
	}
	return nil
}

func validateVariable(v VariableConfig) error {
	if v.Offset < 0 {
		return fmt.Errorf("offset must be >= 0")
	}
	if v.Offset >= MaxFrameLen {
		return fmt.Errorf("offset must be < %d", MaxFrameLen)
	}
	if v.Stutter < 0 {
		return fmt.Errorf("stutter must be >= 0")
	}
	switch v.Mode {
	case ModeIncrement, ModeDecrement, ModeRandom:
		if v.Mask == "" && v.Start == "" {
			return fmt.Errorf("mode %s needs start or mask", v.Mode)
		}
		if len(v.Table) > 0 {
			return fmt.Errorf("table is only valid in table mode")
		}
	case ModeTable:
		if v.Start != "" || v.Step != "" || v.Mask != "" {
			return fmt.Errorf("start, step and mask are not valid in table mode")
		}
	default:
		return fmt.Errorf("invalid mode '%s'", v.Mode)
	}
	for _, s := range append([]string{v.Start, v.Step, v.Mask}, v.Table...) {
		if _, err := DecodeHex(s); err != nil {
			return err
		}
	}
	return nil
}

// DecodeHex decodes a hex vector. A 0x prefix and ':', '-', ' ' or '_'
// separators are accepted.
func DecodeHex(s string) ([]byte, error) {
	s = strings.TrimPrefix(strings.TrimPrefix(strings.TrimSpace(s), "0x"), "0X")
	s = strings.NewReplacer(":", "", "-", "", " ", "", "_", "").Replace(s)
	b, err := hex.DecodeString(s)
	if err != nil {
		return nil, fmt.Errorf("invalid hex '%s': %w", s, err)
	}
	return b, nil
}

// ModifierFlows converts the playlist flows into modifier configurations,
// one per flow in playlist order.
func ModifierFlows(cfg *Config) ([]modifier.FlowConfig, error) {
	flows := make([]modifier.FlowConfig, 0, len(cfg.Flows))
	for i, flow := range cfg.Flows {
		mf := modifier.FlowConfig{
			Ranges: make(map[uint8]modifier.RangeConfig),
			Tables: make(map[uint8]modifier.TableConfig),
		}
		for _, v := range flow.Variables {
			if v.Mode == ModeTable {
				tc, err := tableConfig(v)
				if err != nil {
					return nil, fmt.Errorf("flows[%d] (%s): variable %d: %w", i, flow.Name, v.Index, err)
				}
				mf.Tables[v.Index] = tc
				continue
			}
			rc, err := rangeConfig(v)
			if err != nil {
				return nil, fmt.Errorf("flows[%d] (%s): variable %d: %w", i, flow.Name, v.Index, err)
			}
			mf.Ranges[v.Index] = rc
		}
		for _, l := range flow.Links {
			mf.Links = append(mf.Links, modifier.Link{Parent: l.Parent, Child: l.Child})
		}
		flows = append(flows, mf)
	}
	return flows, nil
}

func rangeConfig(v VariableConfig) (modifier.RangeConfig, error) {
	start, err := DecodeHex(v.Start)
	if err != nil {
		return modifier.RangeConfig{}, err
	}
	mask, err := DecodeHex(v.Mask)
	if err != nil {
		return modifier.RangeConfig{}, err
	}
	step, err := DecodeHex(v.Step)
	if err != nil {
		return modifier.RangeConfig{}, err
	}

	width := len(mask)
	if width == 0 {
		width = len(start)
		mask = repeatByte(0xff, width)
	}
	if len(start) == 0 && v.Mode != ModeRandom {
		start = make([]byte, width)
	}
	if len(step) == 0 && width > 0 {
		step = make([]byte, width)
		step[width-1] = 1
	}

	rc := modifier.RangeConfig{
		Start:   start,
		Step:    step,
		Mask:    mask,
		Stutter: v.Stutter,
		Recycle: math.MaxUint32,
	}
	if v.Recycle != nil {
		rc.Recycle = *v.Recycle
	}
	switch v.Mode {
	case ModeDecrement:
		rc.Mode = modifier.ModeDecrement
	case ModeRandom:
		rc.Mode = modifier.ModeRandom
	default:
		rc.Mode = modifier.ModeIncrement
	}
	return rc, nil
}

func tableConfig(v VariableConfig) (modifier.TableConfig, error) {
	entries := make([][]byte, 0, len(v.Table))
	for _, s := range v.Table {
		b, err := DecodeHex(s)
		if err != nil {
			return modifier.TableConfig{}, err
		}
		entries = append(entries, b)
	}
	return modifier.TableConfig{Entries: entries, Stutter: v.Stutter}, nil
}

func recycleCount(n uint32) *uint32 {
	return &n
}

func repeatByte(b byte, n int) []byte {
	out := make([]byte, n)
	for i := range out {
		out[i] = b
	}
	return out
}
