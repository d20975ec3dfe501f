package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/panjf2000/ants/v2"
	"go.uber.org/multierr"

	"github.com/aaronwong1989/smppc/client"
	"github.com/aaronwong1989/smppc/comm/logging"
	"github.com/aaronwong1989/smppc/config"
	"github.com/aaronwong1989/smppc/transport"
)

var log = logging.GetDefaultLogger()

func main() {
	var (
		path   string
		dest   string
		text   string
		total  int
		report bool
		wait   bool
	)
	flag.StringVar(&path, "c", "", "config file, default $SMPP_CONF_PATH")
	flag.StringVar(&dest, "dest", "13800138000", "destination address")
	flag.StringVar(&text, "text", "hello from smppc", "message text")
	flag.IntVar(&total, "n", 1, "number of messages to send")
	flag.BoolVar(&report, "report", false, "request delivery receipts")
	flag.BoolVar(&wait, "wait", false, "stay bound after sending until SIGINT/SIGTERM")
	flag.Parse()

	var (
		conf *config.Config
		err  error
	)
	if len(path) > 0 {
		conf, err = config.Load(path)
	} else {
		conf, err = config.LoadDefault()
	}
	if err != nil {
		log.Fatalf("load config: %v", err)
	}
	if err = logging.Setup(conf.Logging.Level, conf.Logging.File); err != nil {
		log.Fatalf("setup logging: %v", err)
	}
	log = logging.GetDefaultLogger()
	defer logging.Cleanup()

	if err = run(conf, dest, text, total, report, wait); err != nil {
		log.Errorf("smppc exits with error: %v", err)
		logging.Cleanup()
		os.Exit(1)
	}
}

func run(conf *config.Config, dest string, text string, total int, report bool, wait bool) (err error) {
	session, err := conf.NewSession()
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	h := &handler{}
	opts := append(conf.ClientOptions(), client.WithLogger(log))
	c := client.NewClient(transport.NewGnetDialer(transport.WithGnetLogger(log)), h, opts...)
	defer func() {
		err = multierr.Append(err, shutdown(c))
	}()

	resp, err := c.Connect(ctx, session, conf.Host, conf.Port, conf.ConnectTimeout)
	if err != nil {
		return err
	}
	log.Infof("[%-9s] <<< %s", "Bound", resp)

	if session.Mode().CanSubmit() {
		var opt []client.SubmitOption
		if report {
			opt = append(opt, client.WithRegisteredDelivery(1))
		}
		submitAll(ctx, c, conf, dest, text, total, opt)
	}

	if wait || !session.Mode().CanSubmit() {
		select {
		case <-ctx.Done():
			log.Infof("[%-9s] signal received", "Shutdown")
		case <-c.Done():
			log.Warnf("[%-9s] connection released, state=%s", "Shutdown", c.State())
		}
	}
	return nil
}

// submitAll 通过协程池并发提交
func submitAll(ctx context.Context, c *client.Client, conf *config.Config, dest string, text string, total int, opts []client.SubmitOption) {
	pool, err := ants.NewPool(conf.MaxPoolSize, ants.WithPanicHandler(func(e interface{}) {
		log.Errorf("%v", e)
	}))
	if err != nil {
		log.Errorf("create worker pool: %v", err)
		return
	}
	defer pool.Release()

	var (
		wg      sync.WaitGroup
		mu      sync.Mutex
		success int
		failed  error
	)
	start := time.Now()
	to := conf.Address()
	to.Addr = dest
	for i := 0; i < total && ctx.Err() == nil; i++ {
		wg.Add(1)
		err = pool.Submit(func() {
			defer wg.Done()
			resp, err := c.SendMessage(ctx, to, text, opts...)
			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				failed = multierr.Append(failed, err)
				return
			}
			success++
			log.Debugf("[%-9s] <<< %s", "Submit", resp)
		})
		if err != nil {
			wg.Done()
			log.Errorf("submit task: %v", err)
		}
	}
	wg.Wait()
	errs := multierr.Errors(failed)
	log.Infof("[%-9s] %d sent, %d failed in %v", "Submit", success, len(errs), time.Since(start))
	if len(errs) > 0 {
		log.Warnf("[%-9s] first failure: %v", "Submit", errs[0])
	}
}

// shutdown 已绑定时先解除绑定，再关闭连接
func shutdown(c *client.Client) error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	var err error
	if c.State() == client.Bound {
		err = c.Unbind(ctx)
	}
	err = multierr.Append(err, c.Close())
	select {
	case <-c.Done():
	case <-ctx.Done():
		err = multierr.Append(err, ctx.Err())
	}
	return err
}
