package commands

import (
	"bufio"
	"context"
	"io"
	"log"
	"os"
	"os/signal"
	"strings"

	"github.com/ignite/leadharvest/internal/service/harvest"
)

// watchSkip sets token when the operator types "skip" on stdin or sends the
// skip signal. It stops when ctx is done.
func watchSkip(ctx context.Context, token *harvest.SkipToken, in io.Reader) {
	sigs := make(chan os.Signal, 1)
	if skipSignal != nil {
		signal.Notify(sigs, skipSignal)
	}
	go func() {
		defer signal.Stop(sigs)
		for {
			select {
			case <-ctx.Done():
				return
			case <-sigs:
				log.Println("[Harvest] skip requested by signal")
				token.Set()
			}
		}
	}()

	go func() {
		scanner := bufio.NewScanner(in)
		for scanner.Scan() {
			if ctx.Err() != nil {
				return
			}
			if strings.EqualFold(strings.TrimSpace(scanner.Text()), "skip") {
				log.Println("[Harvest] skip requested, finishing current group")
				token.Set()
			}
		}
	}()
}
