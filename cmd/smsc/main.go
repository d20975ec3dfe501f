package main

import (
	"flag"
	"math/rand"
	_ "net/http/pprof"
	"time"

	"github.com/aaronwong1989/smppc/comm"
	"github.com/aaronwong1989/smppc/comm/logging"
	"github.com/aaronwong1989/smppc/config"
	"github.com/aaronwong1989/smppc/snowflake32"
)

var log = logging.GetDefaultLogger()

func main() {
	rand.Seed(time.Now().Unix()) // 随机种子

	var (
		path      string
		port      int
		multicore bool
	)
	flag.StringVar(&path, "c", "", "config file, default $SMPP_CONF_PATH")
	flag.IntVar(&port, "port", 0, "--port 2775, overrides simulator.port")
	flag.BoolVar(&multicore, "multicore", false, "--multicore=true, overrides simulator.multicore")
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

	sim := conf.Simulator
	if port > 0 {
		sim.Port = port
	}
	if multicore {
		sim.Multicore = true
	}
	ids, err := snowflake32.NewSnowflake(sim.DataCenterId, sim.WorkerId)
	if err != nil {
		log.Fatalf("%v", err)
	}

	log.Infof("current pid is %s.", comm.SavePid("smsc.pid"))
	comm.StartMonitor(sim.Port)

	ss, err := NewServer(&sim, ids)
	if err != nil {
		log.Fatalf("%v", err)
	}
	defer ss.pool.Release()
	err = ss.Run()
	log.Errorf("server(%s://%s) exits with error: %v", ss.protocol, ss.address, err)
}
