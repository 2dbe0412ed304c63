package main

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"time"

	"gitee.com/czyczk/datawave/internal/appinit"
	"gitee.com/czyczk/datawave/internal/controller"
	"gitee.com/czyczk/datawave/internal/networkinfo"
	"gitee.com/czyczk/datawave/pkg/models/authtx"

	"github.com/gin-gonic/gin"
	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"
	"github.com/urfave/cli/v2"
)

func main() {
	var configPath, networkConfigPath string

	// Functions to be used by the cli helper
	serveFunc := getServeFunc(&configPath, &networkConfigPath)
	decryptFunc := getDecryptFunc(&configPath, &networkConfigPath)
	sessionFunc := getSessionFunc(&configPath, &networkConfigPath)
	keyServerFunc := getKeyServerFunc(&configPath, &networkConfigPath)
	uploadFunc := getUploadFunc(&configPath, &networkConfigPath)

	configFlags := func(defaultConfigPath string) []cli.Flag {
		return []cli.Flag{
			&cli.StringFlag{
				Name:        "conf",
				Aliases:     []string{"c"},
				Value:       defaultConfigPath,
				EnvVars:     []string{"DW_CONF"},
				Destination: &configPath,
			},
			&cli.StringFlag{
				Name:        "netconf",
				Aliases:     []string{"n"},
				Value:       "network.yaml",
				EnvVars:     []string{"DW_NETWORK_CONF"},
				Destination: &networkConfigPath,
			},
		}
	}

	app := &cli.App{
		Name:  "datawave",
		Usage: "Decrypt survey answers stored on decentralized storage",
		Commands: []*cli.Command{
			{
				Name:    "serve",
				Aliases: []string{"s"},
				Usage:   "Start the client API server",
				Flags:   configFlags("client.yaml"),
				Action:  serveFunc,
			},
			{
				Name:    "decrypt",
				Aliases: []string{"d"},
				Usage:   "Decrypt the answers of a survey and print the result as JSON",
				Flags: append(configFlags("client.yaml"),
					&cli.StringFlag{Name: "survey", Required: true, Usage: "the survey ID"},
					&cli.StringFlag{Name: "blobs", Usage: "comma separated blob IDs. All answers of the survey are decrypted if omitted"},
					&cli.StringFlag{Name: "service", Usage: "the subscription service ID. Enables the subscription mode"},
					&cli.StringFlag{Name: "subscription", Usage: "the subscription ID. Enables the subscription mode"},
				),
				Action: decryptFunc,
			},
			{
				Name:   "session",
				Usage:  "Create or reuse a session key and print its info",
				Flags:  configFlags("client.yaml"),
				Action: sessionFunc,
			},
			{
				Name:  "upload",
				Usage: "Encrypt an answer payload (JSON) and upload it to a storage gateway",
				Flags: append(configFlags("client.yaml"),
					&cli.StringFlag{Name: "file", Required: true, Usage: "the answer payload file"},
					&cli.IntFlag{Name: "epochs", Usage: "the number of storage epochs"},
				),
				Action: uploadFunc,
			},
			{
				Name:    "keyserver",
				Aliases: []string{"k"},
				Usage:   "Start as a key server",
				Flags:   configFlags("keyserver.yaml"),
				Action:  keyServerFunc,
			},
		},
	}

	// Run the cli helper
	if err := app.Run(os.Args); err != nil {
		log.Fatalln(err)
	}
}

// loadClient loads both config files and instantiates a client.
func loadClient(configPath, networkConfigPath string) (*appinit.Client, *appinit.ClientInfo, error) {
	clientInfo, err := appinit.LoadClientInfo(configPath)
	if err != nil {
		return nil, nil, err
	}

	if err = appinit.SetupLogger(clientInfo.Log); err != nil {
		return nil, nil, err
	}

	networkConfig, err := networkinfo.LoadConfig(networkConfigPath)
	if err != nil {
		return nil, nil, err
	}

	client, err := appinit.NewClient(&clientInfo, networkConfig)
	if err != nil {
		return nil, nil, err
	}

	return client, &clientInfo, nil
}

func getServeFunc(configPath *string, networkConfigPath *string) func(c *cli.Context) error {
	serveFunc := func(c *cli.Context) error {
		client, clientInfo, err := loadClient(*configPath, *networkConfigPath)
		if err != nil {
			return err
		}
		defer client.Close()

		// Instantiate controllers
		pingPongController := &controller.PingPongController{}

		sessionController := &controller.SessionController{
			GroupName:     "/session",
			SessionKeySvc: client.SessionKeySvc,
			PackageID:     client.PackageID,
			DefaultTTLMin: clientInfo.Decrypt.SessionTTLMin,
		}

		surveyController := &controller.SurveyController{
			GroupName:     "/surveys",
			SurveySvc:     client.SurveySvc,
			DecryptSvc:    client.DecryptSvc,
			SessionKeySvc: client.SessionKeySvc,
			Planner:       client.Planner,
		}

		answerController := &controller.AnswerController{
			GroupName: "/answers",
			Cache:     client.Cache,
		}

		// Register controller handlers
		router := gin.Default()
		router.Use(controller.CORSMiddleware())
		apiv1Group := router.Group("/api/v1")
		err = controller.RegisterAll(apiv1Group, pingPongController, sessionController, surveyController, answerController)
		if err != nil {
			return err
		}

		// Start the HTTP server
		httpServer := &http.Server{
			Addr:    fmt.Sprintf(":%v", clientInfo.Port),
			Handler: router,
		}

		chanError := make(chan error, 1)
		go func() {
			if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
				chanError <- errors.Wrap(err, "无法启动 HTTP 服务器")
			}
		}()
		log.Infof("客户端 API 服务器已在端口 %v 上启动。", clientInfo.Port)

		// Listen Ctrl+C signals. On receiving a signal stops the app elegantly
		chanQuit := make(chan os.Signal, 1)
		signal.Notify(chanQuit, os.Interrupt)
		select {
		case err := <-chanError:
			return err
		case <-chanQuit:
			log.Infoln("收到 Ctrl+C 信号，正在退出程序...")

			ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			log.Infoln("正在停止 HTTP 服务器...")
			if err := httpServer.Shutdown(ctx); err != nil {
				return errors.Wrap(err, "无法正常停止 HTTP 服务器")
			}
		}

		return nil
	}

	return serveFunc
}

func getDecryptFunc(configPath *string, networkConfigPath *string) func(c *cli.Context) error {
	decryptFunc := func(c *cli.Context) error {
		client, _, err := loadClient(*configPath, *networkConfigPath)
		if err != nil {
			return err
		}
		defer client.Close()

		ctx, cancel := signal.NotifyContext(c.Context, os.Interrupt)
		defer cancel()

		address, err := client.SessionKeySvc.CurrentAddress(ctx)
		if err != nil {
			return err
		}

		var blobIDs []string
		for _, id := range strings.Split(c.String("blobs"), ",") {
			if id = strings.TrimSpace(id); id != "" {
				blobIDs = append(blobIDs, id)
			}
		}

		authCtx := authtx.AuthorizationContext{
			SubscriptionID: c.String("subscription"),
			ServiceID:      c.String("service"),
		}
		req, err := client.Planner.Plan(ctx, address, c.String("survey"), blobIDs, authCtx)
		if err != nil {
			return err
		}

		result, err := client.DecryptSvc.DecryptAnswers(ctx, *req)
		if err != nil {
			return err
		}

		log.Infof("共 %v 份答卷，成功 %v 份，失败 %v 份，未能下载 %v 份。",
			result.Summary.Total, result.Summary.Success, result.Summary.Failed, result.Summary.NotDownloaded)

		return printJSON(result)
	}

	return decryptFunc
}

func getSessionFunc(configPath *string, networkConfigPath *string) func(c *cli.Context) error {
	sessionFunc := func(c *cli.Context) error {
		client, clientInfo, err := loadClient(*configPath, *networkConfigPath)
		if err != nil {
			return err
		}
		defer client.Close()

		address, err := client.SessionKeySvc.CurrentAddress(c.Context)
		if err != nil {
			return err
		}

		sessionKey, err := client.SessionKeySvc.EnsureSessionKey(c.Context, address, client.PackageID, clientInfo.Decrypt.SessionTTLMin)
		if err != nil {
			return err
		}

		return printJSON(controller.SessionInfo{
			Address:      sessionKey.Address(),
			PackageID:    sessionKey.PackageID(),
			TTLMin:       sessionKey.TTLMin(),
			CreationTime: sessionKey.CreationTime(),
			ExpiresAt:    sessionKey.ExpiresAt(),
		})
	}

	return sessionFunc
}

func getUploadFunc(configPath *string, networkConfigPath *string) func(c *cli.Context) error {
	uploadFunc := func(c *cli.Context) error {
		client, _, err := loadClient(*configPath, *networkConfigPath)
		if err != nil {
			return err
		}
		defer client.Close()

		plaintext, err := os.ReadFile(c.String("file"))
		if err != nil {
			return errors.Wrap(err, "无法读取答卷文件")
		}

		uploaded, err := client.UploadSvc.SealAndUpload(c.Context, plaintext, c.Int("epochs"))
		if err != nil {
			return err
		}

		return printJSON(uploaded)
	}

	return uploadFunc
}

func getKeyServerFunc(configPath *string, networkConfigPath *string) func(c *cli.Context) error {
	keyServerFunc := func(c *cli.Context) error {
		keyServerInfo, err := appinit.LoadKeyServerInfo(*configPath)
		if err != nil {
			return err
		}

		if err = appinit.SetupLogger(keyServerInfo.Log); err != nil {
			return err
		}

		networkConfig, err := networkinfo.LoadConfig(*networkConfigPath)
		if err != nil {
			return err
		}

		ks, closeChain, err := appinit.NewKeyServer(&keyServerInfo, networkConfig)
		if err != nil {
			return err
		}
		defer closeChain()

		if err = ks.Start(); err != nil {
			return err
		}

		// Listen Ctrl+C signals. On receiving a signal stops the app elegantly
		chanQuit := make(chan os.Signal, 1)
		signal.Notify(chanQuit, os.Interrupt)
		select {
		case err := <-ks.Errors():
			return err
		case <-chanQuit:
			log.Infoln("收到 Ctrl+C 信号，正在退出程序...")
			log.Infoln("正在停止密钥服务器...")
			if err := ks.Stop(); err != nil {
				return err
			}
		}

		return nil
	}

	return keyServerFunc
}

func printJSON(v interface{}) error {
	b, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return errors.Wrap(err, "无法序列化输出")
	}

	fmt.Println(string(b))
	return nil
}
