// Package config provides configuration parsing for space runtimes and the
// space command.
//
// The configuration is stored in space.json, space.yaml or space.yml in
// the working directory. Every field is optional. Environment variables
// override file values.
//
// # Configuration File Structure
//
//	{
//	  "log": {
//	    "level": "info",
//	    "format": "text"
//	  },
//	  "scheduler": {
//	    "maxFlushRuns": 10000,
//	    "idleTimeout": "50ms",
//	    "queueSize": 256
//	  },
//	  "inspect": {
//	    "enabled": true,
//	    "addr": "127.0.0.1:6060"
//	  },
//	  "metrics": {
//	    "namespace": "space",
//	    "subsystem": "signal"
//	  },
//	  "tracing": {
//	    "enabled": false,
//	    "tracerName": "space/signal",
//	    "exporter": "stdout"
//	  }
//	}
//
// # Environment
//
//	SPACE_LOG_LEVEL       overrides log.level
//	SPACE_INSPECT_ADDR    overrides inspect.addr and enables the inspector
//	SPACE_MAX_FLUSH_RUNS  overrides scheduler.maxFlushRuns
//
// # Usage
//
//	cfg, err := config.Load(".")
//	if err != nil {
//	    log.Fatal(err)
//	}
//
//	rt := signal.New(cfg.RuntimeOptions(logger)...)
package config
