package main

import (
	"context"
	"fmt"
	"log"
	"os"

	"github.com/ToolmanP/forumactif-archiver/pkg/storage"
	"github.com/ToolmanP/forumactif-archiver/pkg/utils"
	"github.com/ToolmanP/forumactif-archiver/pkg/worker"
)

func main() {
	if len(os.Args) < 2 {
		log.Fatalln("Usage: rewrite url...")
	}

	config, err := utils.LoadConfig("")
	if err != nil {
		log.Fatal(err)
	}

	ctx := context.Background()
	store, err := storage.Open(ctx, config.State)
	if err != nil {
		log.Fatal(err)
	}
	defer store.Close()

	a := worker.NewArchiver(worker.NewEnv(config, nil), store)
	if err := a.Load(ctx); err != nil {
		log.Fatal(err)
	}

	r := a.Env().Rewriter()
	for _, raw := range os.Args[1:] {
		if out, ok := r.Rewrite(raw); ok {
			fmt.Println(raw, "->", out)
		} else {
			fmt.Println(raw, "(unchanged)")
		}
	}
}
