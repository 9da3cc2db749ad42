package main

import (
	"flag"
	"fmt"
	"math/rand"
	"strconv"
	"time"

	"go.uber.org/zap"

	"matchbook/infra/config"
	"matchbook/infra/ident"
	"matchbook/infra/sequence"
	"matchbook/service"
)

func main() {
	totalOrders := flag.Int("orders", 100000, "number of orders to submit")
	priceLevels := flag.Int("price-levels", 200, "unique price levels around the mid")
	basePrice := flag.Int("base-price", 50000, "mid price used for randomization")
	symbol := flag.String("symbol", "BTC-USDT", "symbol to trade")
	cancelEvery := flag.Int("cancel-every", 0, "cancel a random earlier order every N submissions")
	marketRatio := flag.Int("market-ratio", 10, "1 in N orders will be market instead of limit")
	seed := flag.Int64("seed", time.Now().UnixNano(), "seed for deterministic random streams")
	flag.Parse()

	rng := rand.New(rand.NewSource(*seed))

	cfg, err := config.Load()
	if err != nil {
		panic(err)
	}
	eng := service.New(cfg, zap.NewNop().Sugar(), ident.NewSeeded(*seed), sequence.New(0))

	var trades int

	start := time.Now()
	for i := 0; i < *totalOrders; i++ {
		req := nextRandomOrder(rng, i, *symbol, *basePrice, *priceLevels, *marketRatio)
		res, err := eng.Submit(req)
		if err != nil {
			fmt.Printf("submit failed: %v\n", err)
			continue
		}
		trades += len(res.Trades)

		if *cancelEvery > 0 && i > 0 && i%*cancelEvery == 0 {
			target := "lg-" + strconv.Itoa(rng.Intn(i))
			_, _ = eng.Cancel(target, *symbol)
		}
	}
	elapsed := time.Since(start)

	fmt.Printf("submitted %d orders in %s (%.0f orders/s)\n",
		*totalOrders, elapsed.Truncate(time.Millisecond), float64(*totalOrders)/elapsed.Seconds())
	fmt.Printf("matched %d trades (%.0f trades/s)\n", trades, float64(trades)/elapsed.Seconds())
}

func nextRandomOrder(rng *rand.Rand, i int, symbol string, mid, width, marketRatio int) service.SubmitRequest {
	side := "buy"
	price := mid + rng.Intn(width)
	if rng.Intn(2) == 0 {
		side = "sell"
		price = mid - rng.Intn(width)
		if price < 1 {
			price = 1
		}
	}

	otype := "limit"
	if marketRatio > 0 && rng.Intn(marketRatio) == 0 {
		otype = "market"
	}

	return service.SubmitRequest{
		OrderID:  "lg-" + strconv.Itoa(i),
		Symbol:   symbol,
		Type:     otype,
		Side:     side,
		Quantity: strconv.Itoa(rng.Intn(5) + 1),
		Price:    strconv.Itoa(price),
	}
}
