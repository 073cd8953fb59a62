package config

import (
	"flag"
	"strings"
)

// Flags holds the command-line overrides. Only flags the user actually set
// are applied, so a config file value is not clobbered by a flag default.
type Flags struct {
	ConfigPath  string
	WriteConfig bool
	Debug       bool
	Version     bool

	sampleMs        int
	windowSeconds   int
	dockerReverse   bool
	source          string
	renderer        string
	listen          string
	includeLoopback bool
	allInterfaces   bool
	exclude         string
	logFile         string
	logFormat       string
}

// RegisterFlags defines netchoo's flags on fs.
func RegisterFlags(fs *flag.FlagSet) *Flags {
	f := &Flags{}
	def := DefaultConfig()

	fs.IntVar(&f.sampleMs, "s", def.SampleIntervalMs, "sample interval in milliseconds")
	fs.IntVar(&f.sampleMs, "sample", def.SampleIntervalMs, "sample interval in milliseconds")
	fs.IntVar(&f.windowSeconds, "t", def.WindowSeconds, "history window in seconds")
	fs.IntVar(&f.windowSeconds, "time", def.WindowSeconds, "history window in seconds")
	fs.BoolVar(&f.dockerReverse, "r", false, "show docker bridges from the containers' side")
	fs.BoolVar(&f.dockerReverse, "docker-reverse", false, "show docker bridges from the containers' side")
	fs.StringVar(&f.source, "source", def.Source, "counter source: procfs, sysfs, gopsutil or wireguard")
	fs.StringVar(&f.renderer, "renderer", def.Renderer, "renderer: auto, term, tray or log")
	fs.StringVar(&f.listen, "listen", "", "serve the JSON API on this address (empty disables)")
	fs.BoolVar(&f.includeLoopback, "include-loopback", false, "monitor loopback interfaces")
	fs.BoolVar(&f.allInterfaces, "all", false, "also monitor interfaces that are down and idle")
	fs.StringVar(&f.exclude, "exclude", "", "comma-separated glob patterns of interfaces to ignore")
	fs.StringVar(&f.logFile, "log-file", "", "log file used while the dashboard owns the terminal")
	fs.StringVar(&f.logFormat, "log-format", def.LogFormat, "log format: text or json")

	fs.StringVar(&f.ConfigPath, "config", "", "configuration file (default: XDG config dir)")
	fs.BoolVar(&f.WriteConfig, "write-config", false, "write the effective configuration to the config file and exit")
	fs.BoolVar(&f.Debug, "debug", false, "enable debug logging")
	fs.BoolVar(&f.Version, "version", false, "show version and exit")

	return f
}

// Apply copies every flag that was set on fs into cfg.
func (f *Flags) Apply(fs *flag.FlagSet, cfg *Config) {
	fs.Visit(func(fl *flag.Flag) {
		switch fl.Name {
		case "s", "sample":
			cfg.SampleIntervalMs = f.sampleMs
		case "t", "time":
			cfg.WindowSeconds = f.windowSeconds
		case "r", "docker-reverse":
			cfg.DockerReverse = f.dockerReverse
		case "source":
			cfg.Source = f.source
		case "renderer":
			cfg.Renderer = f.renderer
		case "listen":
			cfg.Listen = f.listen
		case "include-loopback":
			cfg.IncludeLoopback = f.includeLoopback
		case "all":
			cfg.OnlyActive = !f.allInterfaces
		case "exclude":
			cfg.Exclude = splitList(f.exclude)
		case "log-file":
			cfg.LogFile = f.logFile
		case "log-format":
			cfg.LogFormat = f.logFormat
		}
	})
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
