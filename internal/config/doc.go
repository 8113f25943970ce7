// Package config provides configuration parsing for heart.
//
// The configuration is stored in heart.json (or heart.yaml / heart.yml) at
// the project root. This package handles loading, saving and validating it.
//
// # Configuration File Structure
//
//	{
//	  "name": "demo",
//	  "engine": {
//	    "debug": false,
//	    "maxDrainIterations": 10000,
//	    "maxReevaluationsPerCycle": 0
//	  },
//	  "log": {
//	    "level": "info",
//	    "format": "text"
//	  },
//	  "inspector": {
//	    "enabled": true,
//	    "addr": "localhost:7070"
//	  },
//	  "metrics": {
//	    "namespace": "heart"
//	  },
//	  "demo": {
//	    "scenario": "list",
//	    "tick": "250ms"
//	  }
//	}
//
// # Usage
//
//	cfg, err := config.Load(".")
//	if err != nil {
//	    log.Fatal(err)
//	}
//
//	fmt.Println("Inspector:", cfg.Inspector.Addr)
package config
