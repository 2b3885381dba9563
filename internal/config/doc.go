// Package config loads the kinesis CLI configuration.
//
// The configuration lives in kinesis.yaml (or kinesis.yml, or
// kinesis.json) in the working directory. Every field is optional;
// missing fields take the defaults returned by New.
//
// # Configuration File Structure
//
//	server:
//	  host: localhost
//	  port: 8080
//	  maxSessions: 1000
//	  debug: false
//	  readTimeout: 60s
//	  writeTimeout: 10s
//	  heartbeat: 30s
//	  maxEventQueue: 256
//	  mailboxSize: 1024
//	  maxFollowups: 256
//	  shutdownTimeout: 30s
//	metrics:
//	  enabled: true
//	  namespace: kinesis
//	tracing:
//	  enabled: false
//	  tracerName: github.com/vango-dev/kinesis
//	journal:
//	  enabled: true
//	  backend: file        # memory, file or s3
//	  dir: .kinesis/journal
//	  bucket: ""
//	  prefix: journals
//	  region: us-east-1
//	  endpoint: ""
//	  flushInterval: 5s
//	  batchSize: 256
//	log:
//	  level: info          # debug, info, warn or error
//	  format: text         # text or json
//	demo:
//	  counters: 3
//	  tick: 1s
//
// # Usage
//
//	cfg, err := config.Load(".")
//	if err != nil {
//	    errors.PrintError(err)
//	    os.Exit(1)
//	}
//	srv := server.New(cfg.ServerConfig())
package config
