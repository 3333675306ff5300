package main

import (
	"fmt"
	"log"
	"os"
	"strings"
	"time"

	"eemeter/internal/api"
	"eemeter/internal/config"
	"eemeter/internal/store"
	"eemeter/internal/weather"

	"github.com/gin-gonic/gin"
)

func main() {
	srvCfg := config.LoadServer()

	if wd, err := os.Getwd(); err == nil {
		log.Printf("Working directory: %s", wd)
	}

	if srvCfg.Production() {
		gin.SetMode(gin.ReleaseMode)
	}

	st, err := store.NewSQLite(srvCfg.DBPath)
	if err != nil {
		log.Fatalf("Failed to open run store %s: %v", srvCfg.DBPath, err)
	}
	defer st.Close()
	log.Printf("Run store: %s", srvCfg.DBPath)

	cache := weather.CacheFromEnv()
	if cache != nil {
		if err := cache.StartCleanup(15 * time.Minute); err != nil {
			log.Printf("Weather cache cleanup not started: %v", err)
		}
		defer cache.Stop()
	}
	client := weather.NewOpenMeteo(nil, weather.WithCache(cache))

	var origins []string
	if s := os.Getenv("CORS_ORIGINS"); s != "" {
		origins = strings.Split(s, ",")
	}

	router := api.NewRouter(api.Deps{Store: st, Weather: client, AllowedOrigins: origins})

	addr := fmt.Sprintf(":%s", srvCfg.Port)
	log.Printf("Starting API server on %s", addr)
	if err := router.Run(addr); err != nil {
		log.Fatalf("Failed to start server: %v", err)
	}
}
