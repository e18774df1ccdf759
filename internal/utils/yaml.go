package utils

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// PrintYaml 以 YAML 格式输出对象
func PrintYaml(v interface{}) {
	enc := yaml.NewEncoder(os.Stdout)
	enc.SetIndent(2)
	defer enc.Close()
	if err := enc.Encode(v); err != nil {
		fmt.Fprintf(os.Stderr, "encode yaml failed: %v\n", err)
	}
}
