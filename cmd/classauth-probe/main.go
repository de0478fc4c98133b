// classauth-probe is a smoke-test client for a campus auth backend.
//
// It runs the full session lifecycle against a live API: login, token
// verification, profile fetch, role listing, logout. Use it to validate a
// deployment before pointing the portal at it.
//
// Configuration is resolved in order: flags, environment (CLASSAUTH_*
// variables, optionally from a .env file), then defaults.
//
//	classauth-probe -base-url http://localhost:8000 -user admin -password secret
//
//	CLASSAUTH_BASE_URL=http://localhost:8000 \
//	CLASSAUTH_USER=admin CLASSAUTH_PASSWORD=secret classauth-probe
package main

import (
	"context"
	"errors"
	"flag"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"
	"github.com/spf13/viper"

	classauth "github.com/campusware/classauth"
	"github.com/campusware/classauth/api"
)

func main() {
	var (
		baseURL  = flag.String("base-url", "", "backend base URL (e.g. http://localhost:8000)")
		userID   = flag.String("user", "", "user identifier to authenticate as")
		password = flag.String("password", "", "password for the probe account")
		envFile  = flag.String("env-file", "", "optional .env file to load before reading the environment")
		timeout  = flag.Duration("timeout", 30*time.Second, "overall probe deadline")
		verbose  = flag.Bool("v", false, "debug logging")
	)
	flag.Parse()

	log := logrus.New()
	// Probe output goes to stderr so stdout stays scriptable.
	log.SetOutput(os.Stderr)
	log.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	if *verbose {
		log.SetLevel(logrus.DebugLevel)
	}

	if *envFile != "" {
		if err := godotenv.Load(*envFile); err != nil {
			log.WithError(err).Fatal("failed to load env file")
		}
	} else {
		// Best-effort: a local .env is common in dev checkouts.
		_ = godotenv.Load()
	}

	v := viper.New()
	v.SetEnvPrefix("classauth")
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()
	v.SetDefault("base_url", "http://localhost:8000")

	if *baseURL == "" {
		*baseURL = v.GetString("base_url")
	}
	if *userID == "" {
		*userID = v.GetString("user")
	}
	if *password == "" {
		*password = v.GetString("password")
	}

	if *userID == "" || *password == "" {
		log.Fatal("user and password are required (flags or CLASSAUTH_USER / CLASSAUTH_PASSWORD)")
	}

	client, err := api.New(api.Config{
		BaseURL:   *baseURL,
		UserAgent: "classauth-probe",
	})
	if err != nil {
		log.WithError(err).Fatal("client init failed")
	}

	ctx, cancel := context.WithTimeout(context.Background(), *timeout)
	defer cancel()

	if err := probe(ctx, log, client, *userID, *password); err != nil {
		log.WithError(err).Fatal("probe failed")
	}
	log.Info("probe passed")
}

func probe(ctx context.Context, log *logrus.Logger, client *api.Client, userID, password string) error {
	start := time.Now()
	result, err := client.Login(ctx, classauth.Credentials{UserID: userID, Password: password})
	if err != nil {
		return err
	}
	log.WithFields(logrus.Fields{
		"user_id": result.User.UserID,
		"role":    result.User.Role,
		"took":    time.Since(start).Round(time.Millisecond),
	}).Info("login ok")

	token := result.AccessToken

	if err := client.VerifyToken(ctx, token); err != nil {
		return err
	}
	log.Debug("token verification ok")

	me, err := client.Me(ctx, token)
	if err != nil {
		return err
	}
	if me.UserID != result.User.UserID {
		return errors.New("profile user does not match login user")
	}
	log.WithField("full_name", me.FullName).Info("profile ok")

	roles, err := client.Roles(ctx, token)
	if err != nil {
		// Role listing may be restricted; report and continue.
		log.WithError(err).Warn("role listing unavailable")
	} else {
		names := make([]string, 0, len(roles))
		for _, r := range roles {
			names = append(names, r.Value)
		}
		log.WithField("roles", strings.Join(names, ",")).Info("roles ok")
	}

	if me.Role == classauth.RoleAdmin {
		users, err := client.ListUsers(ctx, token, 0, 5)
		if err != nil {
			return err
		}
		log.WithField("count", len(users)).Info("user listing ok")
	}

	if err := client.Logout(ctx, token); err != nil {
		return err
	}
	log.Info("logout ok")

	// A verified-then-logged-out token must stop working.
	if err := client.VerifyToken(ctx, token); err == nil {
		log.Warn("token still valid after logout; backend may not revoke tokens")
	}

	return nil
}
