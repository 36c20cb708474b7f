package cmd

import (
	"context"
	"fmt"
	"time"

	"go-battle/dto"
	"go-battle/entities"
	"go-battle/repository"
	"go-battle/service"

	"github.com/alicebob/miniredis/v2"
	"github.com/fatih/color"
	"github.com/go-redis/redis/v8"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var (
	simTicks    int
	simSpeed    float64
	simMemory   bool
	simAutoplay bool
	simKeep     bool
)

var simulateCmd = &cobra.Command{
	Use:   "simulate",
	Short: "Run one battle headless and print the outcome",
	Long: `Runs a battle tick by tick without a tick loop or HTTP server. With --autoplay the
primary side buys its card whenever it can. The battle is deleted afterwards unless --keep is set.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		rt, err := loadApp()
		if err != nil {
			return err
		}
		defer rt.logger.Sync()
		ctx := context.Background()

		var rdb *redis.Client
		if simMemory {
			mr, err := miniredis.Run()
			if err != nil {
				return fmt.Errorf("start in-memory redis: %w", err)
			}
			defer mr.Close()
			rdb = redis.NewClient(&redis.Options{Addr: mr.Addr()})
		} else {
			if rdb, err = repository.NewRedis(ctx, rt.cfg.Redis, rt.logger); err != nil {
				return err
			}
		}
		defer rdb.Close()

		manager := service.NewManager(repository.NewRedisStore(rdb), rt.catalog, rt.cfg.Battle, rt.logger)
		defer manager.Shutdown()

		id, err := manager.Create(ctx, dto.CreateBattleRequest{Speed: &simSpeed, Paused: true})
		if err != nil {
			return err
		}
		if !simKeep {
			defer func() {
				if err := manager.Delete(ctx, id); err != nil {
					rt.logger.Warn("cleanup failed", zap.String("battle_id", id), zap.Error(err))
				}
			}()
		}

		res, err := runSimulation(ctx, manager, id, simTicks, simAutoplay)
		if err != nil {
			return err
		}
		printSummary(res)
		return nil
	},
}

func init() {
	simulateCmd.Flags().IntVar(&simTicks, "ticks", 600, "number of ticks to run")
	simulateCmd.Flags().Float64Var(&simSpeed, "speed", 1, "seconds of accrual per tick")
	simulateCmd.Flags().BoolVar(&simMemory, "memory", false, "use an embedded in-memory redis")
	simulateCmd.Flags().BoolVar(&simAutoplay, "autoplay", true, "let the primary side buy whenever it can")
	simulateCmd.Flags().BoolVar(&simKeep, "keep", false, "keep the battle state in redis")
	rootCmd.AddCommand(simulateCmd)
}

type simResult struct {
	battleID  string
	ticks     int
	purchases int
	elapsed   time.Duration
	state     dto.BattleState
}

// runSimulation ticks until the influence leaves (0,1) or the tick budget is spent.
func runSimulation(ctx context.Context, m *service.Manager, id string, ticks int, autoplay bool) (simResult, error) {
	res := simResult{battleID: id}
	start := time.Now()
	for res.ticks < ticks {
		if err := m.Tick(ctx, id, nil); err != nil {
			return res, err
		}
		res.ticks++
		if autoplay {
			ok, err := m.Purchase(ctx, id, entities.Primary)
			if err != nil {
				return res, err
			}
			if ok {
				res.purchases++
			}
		}
		st, err := m.State(ctx, id)
		if err != nil {
			return res, err
		}
		res.state = st
		if st.Influence <= 0 || st.Influence >= 1 {
			break
		}
	}
	res.elapsed = time.Since(start)
	return res, nil
}

func printSummary(res simResult) {
	st := res.state
	bold := color.New(color.Bold)
	bold.Printf("battle %s: %d ticks in %s, %d primary purchases\n", res.battleID, res.ticks, res.elapsed.Round(time.Millisecond), res.purchases)

	for _, r := range entities.Resources() {
		rv := st.Resources[r.String()]
		fmt.Printf("  %-13s %10.2f  (%+.3f/s)\n", r, rv.Amount, rv.Rate)
	}
	fmt.Printf("  private gold  %10.2f / %.2f\n", st.Primary.PrivateGold, st.Secondary.PrivateGold)
	fmt.Printf("  total gained  %10.2f / %.2f\n", st.Primary.TotalGained, st.Secondary.TotalGained)
	fmt.Printf("  opponent      %s (wait %.4f, draw %.4f, play %.4f)\n", st.Opponent.Action, st.Opponent.Wait, st.Opponent.Draw, st.Opponent.Play)

	switch {
	case st.Influence >= 1:
		color.Green("primary side wins (influence %.3f)", st.Influence)
	case st.Influence <= 0:
		color.Red("secondary side wins (influence %.3f)", st.Influence)
	default:
		color.Yellow("undecided after %d ticks (influence %.3f)", res.ticks, st.Influence)
	}
}
