package command

import (
	"github.com/urfave/cli/v2"
)

// UnitCostCommand prints the price of one lookup.
func UnitCostCommand() *cli.Command {
	return &cli.Command{
		Name:  "unit-cost",
		Usage: "Show the price of one lookup",
		Action: func(c *cli.Context) error {
			rt := getRuntime(c)
			checker, err := rt.Checker()
			if err != nil {
				return err
			}

			cost, err := checker.GetUnitCost(c.Context)
			if err != nil {
				return err
			}
			return rt.Print(c, amountView{Name: "UNIT_COST", Amount: float64(cost)})
		},
	}
}

// BalanceCommand prints the partner's remaining points.
func BalanceCommand() *cli.Command {
	return &cli.Command{
		Name:  "balance",
		Usage: "Show the partner's remaining points",
		Action: func(c *cli.Context) error {
			rt := getRuntime(c)
			checker, err := rt.Checker()
			if err != nil {
				return err
			}

			balance, err := checker.GetBalance(c.Context)
			if err != nil {
				return err
			}
			return rt.Print(c, amountView{Name: "BALANCE", Amount: balance})
		},
	}
}
