// Package config loads the configuration of the partition CLI.
//
// Configuration is read with viper from partition.yaml (or .json, .toml) in
// the working directory, from the file named by $PARTITION_CONFIG, or from an
// explicit path. Environment variables prefixed with PARTITION_ override file
// values, with dots in keys replaced by underscores.
//
// # Configuration File Structure
//
//	log:
//	  level: debug
//	  format: text
//	devtools:
//	  enabled: true
//	  addr: localhost:7070
//	  write_timeout: 10s
//	metrics:
//	  enabled: true
//	  namespace: partition
//	tracing:
//	  enabled: false
//	parts:
//	  - name: user
//	    children:
//	      - name: first
//	        initial: Ada
//	      - name: last
//	        initial: Lovelace
//	  - name: count
//	    initial: 0
//
// # Usage
//
//	cfg, err := config.Load("")
//	if err != nil {
//	    log.Fatal(err)
//	}
//
//	g := part.NewGraph()
//	parts, err := cfg.Build(g)
package config
