package cmd

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"

	"github.com/spf13/cobra"

	"payment-schedule/currency"
	"payment-schedule/domain"
	"payment-schedule/service"
)

var (
	flagContractValue float64
	flagScheduleFile  string
)

var errInvalidSchedule = errors.New("schedule has validation errors")

var calcCmd = &cobra.Command{
	Use:   "calc",
	Short: "Compute stage amounts for a schedule",
	Long: `Reads a schedule as a JSON list of stage records, e.g.

  [{"stage":"Booking","type":"fixed","fixedAmount":10000},
   {"stage":"Design","type":"percentage","percentage":50},
   {"stage":"Handover","type":"remaining"}]

and prints the amount of every stage. Without --file the schedule is read
from stdin; with an empty input the configured default schedule is used.`,
	RunE: runCalc,
}

func init() {
	calcCmd.Flags().Float64VarP(&flagContractValue, "contract-value", "v", 0, "Total contract value")
	calcCmd.Flags().StringVarP(&flagScheduleFile, "file", "f", "", "Schedule JSON file (default stdin)")
	_ = calcCmd.MarkFlagRequired("contract-value")
	rootCmd.AddCommand(calcCmd)
}

func runCalc(cmd *cobra.Command, _ []string) error {
	schedule, err := readSchedule(cmd.InOrStdin())
	if err != nil {
		return err
	}

	scheduleService := service.NewScheduleService(nil, noCache{}, schedule, logger)
	result, err := scheduleService.Calculate(cmd.Context(), domain.ScheduleInput{
		ContractValue: flagContractValue,
		Stages:        schedule,
	})
	if err != nil {
		return err
	}

	fmt.Fprintln(cmd.OutOrStdout(), renderResult(result))
	if !result.Valid {
		return errInvalidSchedule
	}
	return nil
}

func readSchedule(stdin io.Reader) (domain.PaymentSchedule, error) {
	var (
		data []byte
		err  error
	)
	if flagScheduleFile != "" {
		data, err = os.ReadFile(flagScheduleFile)
	} else {
		data, err = io.ReadAll(stdin)
	}
	if err != nil {
		return nil, fmt.Errorf("reading schedule: %w", err)
	}

	if len(bytes.TrimSpace(data)) == 0 {
		return cfg.DefaultSchedule()
	}

	var schedule domain.PaymentSchedule
	if err := json.Unmarshal(data, &schedule); err != nil {
		return nil, fmt.Errorf("parsing schedule: %w", err)
	}
	return schedule, nil
}

func renderResult(result domain.ScheduleResult) string {
	t := table{
		Title:   "Payment schedule · contract " + currency.FormatINR(result.ContractValue),
		Headers: []string{"#", "Stage", "Type", "Amount"},
		Right:   map[int]bool{3: true},
	}
	for i, st := range result.Stages {
		t.Rows = append(t.Rows, []string{
			strconv.Itoa(i + 1),
			st.Label,
			string(st.Kind),
			currency.FormatINR(st.Amount),
		})
	}
	t.Rows = append(t.Rows, []string{"", "Total", mutedStyle.Render(fmt.Sprintf("%g%%", result.TotalPercentage)), currency.FormatINR(result.Total)})

	out := renderTable(t)
	for _, ve := range result.Errors {
		out += "\n" + warnStyle.Render("⚠ "+ve.Message)
	}
	return out
}

// noCache skips caching for one-shot CLI runs.
type noCache struct{}

func (noCache) Get(context.Context, string) (string, bool) { return "", false }
func (noCache) Set(context.Context, string, string) error  { return nil }
