// Package config holds the runtime configuration of SatyaGyan.
//
// Settings come from four layers, each overriding the previous one:
// built-in defaults (NewConfig), the YAML configuration file (.satyagyan
// or $XDG_CONFIG_HOME/satyagyan/config.yaml), the environment including
// a .env file, and finally CLI flags.
//
// API keys are read only from the environment. The configuration file
// carries model, search and fetch settings plus per-site cookies and
// headers:
//
//	llm:
//	  provider: openai
//	  model: gpt-4o-mini
//	search:
//	  provider: serper
//	  results: 5
//	sites:
//	  example.com:
//	    cookie: "session=abc"
//	    render: true
package config
