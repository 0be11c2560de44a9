package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"currency-rate-api/internal/config"
	"currency-rate-api/internal/logger"
	"currency-rate-api/internal/service"
)

// CLIConfig holds the command line options
type CLIConfig struct {
	List           bool
	From           string
	To             string
	Amount         string
	PropertiesPath string
	BaseURL        string
	Timeout        time.Duration
	LogLevel       string
}

var errUsage = errors.New("either -list or -from, -to and -amount are required")

func main() {
	cliConfig, err := parseFlags(os.Args[1:], os.Stderr)
	if err != nil {
		os.Exit(2)
	}

	if err := run(context.Background(), cliConfig, os.Stdout, os.Stderr); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}

func parseFlags(args []string, output io.Writer) (CLIConfig, error) {
	var cliConfig CLIConfig

	flags := flag.NewFlagSet("rates", flag.ContinueOnError)
	flags.SetOutput(output)
	flags.BoolVar(&cliConfig.List, "list", false, "List supported currency codes")
	flags.StringVar(&cliConfig.From, "from", "", "Source currency code")
	flags.StringVar(&cliConfig.To, "to", "", "Target currency code")
	flags.StringVar(&cliConfig.Amount, "amount", "", "Amount to convert")
	flags.StringVar(&cliConfig.PropertiesPath, "properties", config.DefaultPropertiesPath, "Properties file holding API_KEY")
	flags.StringVar(&cliConfig.BaseURL, "base-url", config.DefaultBaseURL, "ExchangeRate-API base URL")
	flags.DurationVar(&cliConfig.Timeout, "timeout", service.DefaultTimeout, "Request timeout")
	flags.StringVar(&cliConfig.LogLevel, "log-level", "error", "Log level (debug, info, warn, error)")

	if err := flags.Parse(args); err != nil {
		return CLIConfig{}, err
	}
	return cliConfig, nil
}

// run executes one list or convert call; results go to stdout, logs to stderr
func run(ctx context.Context, cliConfig CLIConfig, stdout, stderr io.Writer) error {
	log := logger.NewWithOutput(cliConfig.LogLevel, stderr)

	client := service.NewExchangeClient(config.ExchangeRateAPI{
		BaseURL:        strings.TrimRight(cliConfig.BaseURL, "/"),
		PropertiesPath: cliConfig.PropertiesPath,
		Timeout:        cliConfig.Timeout,
	}, log)

	if cliConfig.List {
		codes, err := client.ListCurrencyCodes(ctx)
		if err != nil {
			return err
		}
		for _, code := range codes {
			fmt.Fprintln(stdout, code)
		}
		return nil
	}

	if cliConfig.From == "" || cliConfig.To == "" || cliConfig.Amount == "" {
		return errUsage
	}

	amount, err := service.ParseAmount(cliConfig.Amount)
	if err != nil {
		return err
	}

	result, err := client.Convert(ctx, strings.ToUpper(cliConfig.From), strings.ToUpper(cliConfig.To), amount)
	if err != nil {
		return err
	}

	fmt.Fprintln(stdout, result)
	return nil
}
