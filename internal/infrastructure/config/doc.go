// Package config handles loading and validating Jung Home bridge configuration.
//
// This package manages:
//   - Loading configuration from YAML files
//   - Overriding with environment variables
//   - Validation of required fields
//   - Default value handling
//
// Security Considerations:
//   - Sensitive values (the hub token, MQTT passwords) should be set via
//     environment variables
//   - The config file should have restricted permissions (0600)
//   - The hub token is validated for its fixed length only; the hub itself
//     is the authority on whether it is valid
//
// Performance Characteristics:
//   - Configuration is loaded once at startup
//   - No runtime overhead after initial load
//
// Usage:
//
//	cfg, err := config.Load("configs/config.yaml")
//	if err != nil {
//	    log.Fatal(err)
//	}
//	fmt.Println(cfg.Hub.Host)
package config
