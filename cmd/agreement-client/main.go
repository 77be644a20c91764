package main

import (
	"encoding/json"
	"fmt"
	"log"
	"os"

	"github.com/urfave/cli/v2"

	"github.com/agreement-center/agreement-backend/agreement"
	"github.com/agreement-center/agreement-backend/api"
	"github.com/agreement-center/agreement-backend/api/clients"
	"github.com/agreement-center/agreement-backend/interfaces"
)

var flagServerAddr *cli.StringFlag = &cli.StringFlag{
	Name:  "agreement-server-addr",
	Value: "http://127.0.0.1:8080",
	Usage: "Agreement server address to request",
}
var flagAccessToken *cli.StringFlag = &cli.StringFlag{
	Name:     "access-token",
	Required: true,
	Usage:    "Access token identifying the calling party",
}
var flagPath *cli.StringFlag = &cli.StringFlag{
	Name:     "path",
	Required: true,
	Usage:    "Agreement path in project/name form",
}
var flagUpdates *cli.StringFlag = &cli.StringFlag{
	Name:  "updates",
	Usage: `Input updates as a JSON array, e.g. '[{"index":0,"value":"Alice"}]'`,
}
var flagSignMode *cli.BoolFlag = &cli.BoolFlag{
	Name:  "sign-mode",
	Usage: "Fetch the agreement for signing, recording a view event",
}

func main() {
	app := &cli.App{
		Name:  "agreement client",
		Usage: "Query and sign agreements over the agreement API",
		Flags: []cli.Flag{
			flagServerAddr,
			flagAccessToken,
		},
		Commands: []*cli.Command{
			&cli.Command{
				Name:        "list",
				Usage:       "List agreements visible to the caller",
				Description: "Prints every agreement the caller can access together with its status.",
				Action: func(cCtx *cli.Context) error {
					c := NewClientConfig(cCtx)
					return c.List()
				},
			},
			&cli.Command{
				Name:        "get",
				Usage:       "Fetch one agreement",
				Description: "Prints the agreement's text, inputs and permissions. With --sign-mode a view event is recorded.",
				Flags: []cli.Flag{
					flagPath,
					flagSignMode,
				},
				Action: func(cCtx *cli.Context) error {
					c := NewClientConfig(cCtx)
					return c.Get(cCtx.String(flagPath.Name), cCtx.Bool(flagSignMode.Name))
				},
			},
			&cli.Command{
				Name:        "update-inputs",
				Usage:       "Update input values owned by the caller",
				Description: "Applies a batch of input updates. The batch either fully applies or fully fails.",
				Flags: []cli.Flag{
					flagPath,
					flagUpdates,
				},
				Action: func(cCtx *cli.Context) error {
					c := NewClientConfig(cCtx)
					return c.UpdateInputs(cCtx.String(flagPath.Name), cCtx.String(flagUpdates.Name))
				},
			},
			&cli.Command{
				Name:        "sign",
				Usage:       "Sign an agreement",
				Description: "Records the caller's signature, applying any final input updates first.",
				Flags: []cli.Flag{
					flagPath,
					flagUpdates,
				},
				Action: func(cCtx *cli.Context) error {
					c := NewClientConfig(cCtx)
					return c.Sign(cCtx.String(flagPath.Name), cCtx.String(flagUpdates.Name))
				},
			},
		},
	}

	if err := app.Run(os.Args); err != nil {
		log.Fatal(err)
	}
}

type Client struct {
	Provider api.AgreementProvider
}

func NewClientConfig(cCtx *cli.Context) *Client {
	return &Client{
		Provider: &clients.AgreementClient{
			ServerAddr:  cCtx.String(flagServerAddr.Name),
			AccessToken: cCtx.String(flagAccessToken.Name),
		},
	}
}

func (c *Client) List() error {
	summaries, err := c.Provider.ListAgreements()
	if err != nil {
		return err
	}
	return printJSON(summaries)
}

func (c *Client) Get(rawPath string, signMode bool) error {
	path, err := interfaces.NewAgreementPath(rawPath)
	if err != nil {
		return err
	}

	intent := agreement.IntentView
	if signMode {
		intent = agreement.IntentSign
	}

	resp, err := c.Provider.GetAgreement(path, intent)
	if err != nil {
		return err
	}
	return printJSON(resp)
}

func (c *Client) UpdateInputs(rawPath, rawUpdates string) error {
	path, err := interfaces.NewAgreementPath(rawPath)
	if err != nil {
		return err
	}

	updates, err := parseUpdates(rawUpdates)
	if err != nil {
		return err
	}

	if err := c.Provider.UpdateInputs(path, updates); err != nil {
		return err
	}
	fmt.Println("inputs updated")
	return nil
}

func (c *Client) Sign(rawPath, rawUpdates string) error {
	path, err := interfaces.NewAgreementPath(rawPath)
	if err != nil {
		return err
	}

	updates, err := parseUpdates(rawUpdates)
	if err != nil {
		return err
	}

	if err := c.Provider.SignAgreement(path, updates); err != nil {
		if agreement.IsSignNotRecorded(err) {
			return fmt.Errorf("inputs were saved but the signature was not recorded, retry signing: %w", err)
		}
		return err
	}
	fmt.Println("agreement signed")
	return nil
}

func parseUpdates(raw string) ([]agreement.InputUpdate, error) {
	if raw == "" {
		return nil, nil
	}

	var updates []agreement.InputUpdate
	if err := json.Unmarshal([]byte(raw), &updates); err != nil {
		return nil, fmt.Errorf("could not parse updates: %w", err)
	}
	return updates, nil
}

func printJSON(v any) error {
	encoded, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	fmt.Println(string(encoded))
	return nil
}
