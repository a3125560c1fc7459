// Package setup implements the first-run terminal wizard that writes
// config.yaml for the app.
package setup

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/huh"
	"github.com/charmbracelet/lipgloss"
	"github.com/shopspring/decimal"

	"github.com/cbotrade/paperfloor/config"
)

var (
	subtle    = lipgloss.AdaptiveColor{Light: "#D9DCCF", Dark: "#383838"}
	highlight = lipgloss.AdaptiveColor{Light: "#874BFD", Dark: "#7D56F4"}
	special   = lipgloss.AdaptiveColor{Light: "#43BF6D", Dark: "#73F59F"}

	headerStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("205")).
			Background(highlight).
			Padding(1, 2).
			Bold(true).
			MarginBottom(1)

	stepStyle = lipgloss.NewStyle().
			Foreground(special).
			Bold(true).
			MarginTop(1).
			MarginBottom(0)
)

func header(step string) {
	fmt.Print("\033[H\033[2J")
	fmt.Println(headerStyle.Render("PAPERFLOOR CONFIG WIZARD"))
	if step != "" {
		fmt.Println(stepStyle.Render(step))
	}
}

// RunTUI launches the terminal configuration wizard and writes the
// resulting config to path.
func RunTUI(path string) error {
	cfg := config.Default()

	pairStr := cfg.Pair.String()
	seedQuote := cfg.SeedQuote.String()
	seedBase := cfg.SeedBase.String()
	priceSource := cfg.PriceSource
	storeURL := ""
	authToken := ""
	llmKey := ""
	llmURL := "https://openrouter.ai/api/v1/chat/completions"
	llmModel := "deepseek/deepseek-chat"
	webAddr := cfg.WebAddr
	confirm := false

	header("")
	fmt.Println(lipgloss.NewStyle().Foreground(subtle).Render("Paper trading with real prices. Let's set you up.\n"))

	header("STEP 1: MARKET")
	err := huh.NewForm(
		huh.NewGroup(
			huh.NewInput().
				Title("Trading Pair").
				Description("Must contain underscore (e.g. BTC_USDT)").
				Value(&pairStr).
				Validate(func(s string) error {
					if _, err := config.PairFromString(s); err != nil {
						return fmt.Errorf("invalid format: must be BASE_QUOTE (e.g. BTC_USDT)")
					}
					return nil
				}),
			huh.NewSelect[string]().
				Title("Price source").
				Options(
					huh.NewOption("Static demo prices", config.PriceSourceStatic),
					huh.NewOption("Binance live prices", config.PriceSourceBinance),
				).
				Value(&priceSource),
		),
	).Run()
	if err != nil {
		return err
	}

	header("STEP 2: WALLET SEED")
	err = huh.NewForm(
		huh.NewGroup(
			huh.NewInput().
				Title("Starting quote balance").
				Value(&seedQuote).
				Validate(validateSeed),
			huh.NewInput().
				Title("Starting base balance").
				Value(&seedBase).
				Validate(validateSeed),
		),
	).Run()
	if err != nil {
		return err
	}

	header("STEP 3: SHARED CHAT (optional)")
	err = huh.NewForm(
		huh.NewGroup(
			huh.NewInput().
				Title("Log store URL").
				Description("Leave empty to run without chat").
				Value(&storeURL),
			huh.NewInput().
				Title("Custom auth token").
				Description("Leave empty for anonymous sign-in").
				EchoMode(huh.EchoModePassword).
				Value(&authToken),
		),
	).Run()
	if err != nil {
		return err
	}

	header("STEP 4: MARKET ADVICE (optional)")
	err = huh.NewForm(
		huh.NewGroup(
			huh.NewInput().
				Title("LLM API key").
				Description("Leave empty to run without the advice tab").
				EchoMode(huh.EchoModePassword).
				Value(&llmKey),
			huh.NewInput().
				Title("LLM API URL").
				Value(&llmURL),
			huh.NewInput().
				Title("Model").
				Value(&llmModel),
		),
	).Run()
	if err != nil {
		return err
	}

	header("STEP 5: WEB")
	err = huh.NewForm(
		huh.NewGroup(
			huh.NewInput().
				Title("Listen address").
				Value(&webAddr),
		),
	).Run()
	if err != nil {
		return err
	}

	cfg.Pair, _ = config.PairFromString(pairStr)
	cfg.SeedQuote = decimal.RequireFromString(strings.TrimSpace(seedQuote))
	cfg.SeedBase = decimal.RequireFromString(strings.TrimSpace(seedBase))
	cfg.PriceSource = priceSource
	cfg.StoreURL = strings.TrimSpace(storeURL)
	cfg.AuthToken = strings.TrimSpace(authToken)
	cfg.WebAddr = webAddr
	if strings.TrimSpace(llmKey) != "" {
		cfg.LLMAPIKey = strings.TrimSpace(llmKey)
		cfg.LLMAPIURL = strings.TrimSpace(llmURL)
		cfg.LLMModel = strings.TrimSpace(llmModel)
	}

	header("CONFIRM")
	err = huh.NewForm(
		huh.NewGroup(
			huh.NewConfirm().
				Title(fmt.Sprintf("Write configuration to %s?", path)).
				Value(&confirm),
		),
	).Run()
	if err != nil {
		return err
	}
	if !confirm {
		fmt.Println("Aborted, nothing written.")
		return nil
	}

	if err := cfg.Validate(); err != nil {
		return err
	}
	if err := cfg.Save(path); err != nil {
		return err
	}

	fmt.Println(lipgloss.NewStyle().Foreground(special).Render("Configuration saved. Run the app with --config " + path))
	return nil
}

func validateSeed(s string) error {
	d, err := decimal.NewFromString(strings.TrimSpace(s))
	if err != nil {
		return fmt.Errorf("must be a decimal number")
	}
	if d.IsNegative() {
		return fmt.Errorf("must not be negative")
	}
	return nil
}
