package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"math/rand"
	"os"
	"time"

	"github.com/joho/godotenv"

	"github.com/noah-isme/toko-checkout/internal/catalog"
	"github.com/noah-isme/toko-checkout/internal/lane"
	"github.com/noah-isme/toko-checkout/internal/warehouse"
)

func main() {
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, relying on environment variables")
	}

	count := flag.Int("n", 10, "number of random items to generate")
	seed := flag.Int64("seed", 0, "random seed (0 uses the current time)")
	currency := flag.String("currency", os.Getenv("CURRENCY"), "currency symbol for the listing")
	laneURL := flag.String("lane", "", "base URL of a running lane; when set the listing is read from it")
	push := flag.Bool("push", false, "stock the generated items into the lane given by -lane")
	flag.Parse()

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if *seed == 0 {
		*seed = time.Now().UnixNano()
	}
	rng := rand.New(rand.NewSource(*seed))

	if *laneURL != "" {
		if err := remote(ctx, lane.NewClient(*laneURL, 5*time.Second), *count, rng, *push); err != nil {
			log.Fatalf("lane %s: %v", *laneURL, err)
		}
		return
	}

	seeds, err := warehouse.Generate(catalog.NewRegistry(), *count, rng)
	if err != nil {
		log.Fatalf("generate inventory: %v", err)
	}
	wh := warehouse.New(warehouse.Config{Currency: *currency})
	if err := wh.Seed(ctx, seeds); err != nil {
		log.Fatalf("seed warehouse: %v", err)
	}
	if err := wh.PrintInventory(ctx, os.Stdout); err != nil {
		log.Fatalf("print inventory: %v", err)
	}
}

func remote(ctx context.Context, client *lane.Client, count int, rng *rand.Rand, push bool) error {
	if push {
		seeds, err := warehouse.Generate(catalog.NewRegistry(), count, rng)
		if err != nil {
			return err
		}
		for _, s := range seeds {
			if err := client.Stock(ctx, s.Item.ID(), s.Item.Price().StringFixed(2), s.Quantity); err != nil {
				return fmt.Errorf("stock %s: %w", s.Item.ID(), err)
			}
		}
		log.Printf("Stocked %d items", len(seeds))
	}

	inv, err := client.Inventory(ctx)
	if err != nil {
		return err
	}
	for _, it := range inv.Items {
		fmt.Printf("Item ID: %s, Price: %s%s, Quantity: %d\n", it.ItemID, it.Price, inv.Currency, it.Quantity)
	}
	return nil
}
