package main

import "fmt"

// infraErr and validationErr prefix an error so exitCode (main.go) can
// map it to spec §6's 0/1/2 exit code contract without a bespoke error
// type per subcommand.
func infraErr(op string, err error) error {
	return fmt.Errorf("infra: %s: %w", op, err)
}

func validationErr(op string, err error) error {
	return fmt.Errorf("validation: %s: %w", op, err)
}
