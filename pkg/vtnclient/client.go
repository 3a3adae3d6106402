// Copyright (c) 2019 Cisco and/or its affiliates.
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at:
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package vtnclient

import (
	"bytes"
	"fmt"
	"io/ioutil"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/ghodss/yaml"
	"github.com/ligato/cn-infra/config"
	"github.com/pkg/errors"
)

const (
	// DefaultPort is the port of the agent REST server used when none is configured.
	DefaultPort = "9191"

	// ConfigEnvVar names the environment variable with the path to the client config file.
	ConfigEnvVar = "VTN_CLIENT_CONFIG"
)

// HTTPClient wraps http.Client with configured authorization and url base
type HTTPClient struct {
	// Config for this client
	Config *HTTPClientConfig

	http *http.Client
}

// HTTPClientConfig is configuration for http client
type HTTPClientConfig struct {
	// Port on what agents are listening on
	Port string `json:"port"`
	// Basic authorization for client
	BasicAuth string `json:"basic-auth"`
	// If https or http should be used
	UseHTTPS bool `json:"use-https"`
}

// CreateHTTPClient uses environment variable VTN_CLIENT_CONFIG or the given
// config file to establish connection.
func CreateHTTPClient(configFile string) (*HTTPClient, error) {
	if configFile == "" {
		configFile = os.Getenv(ConfigEnvVar)
	}

	cfg := &HTTPClientConfig{Port: DefaultPort}
	if configFile != "" {
		if err := config.ParseConfigFromYamlFile(configFile, cfg); err != nil {
			return nil, err
		}
	}

	return &HTTPClient{
		Config: cfg,
		http: &http.Client{
			Transport: &http.Transport{},
			Timeout:   10 * time.Second,
		},
	}, nil
}

// createURL builds the URL of the command on the given agent.
func (client *HTTPClient) createURL(base string, cmd string) string {
	url := "http://"
	if client.Config.UseHTTPS {
		url = "https://"
	}
	if client.Config.Port != "" && !strings.Contains(base, ":") {
		base = base + ":" + client.Config.Port
	}
	return url + base + "/" + strings.TrimPrefix(cmd, "/")
}

func (client *HTTPClient) do(method, base, cmd string, body []byte) (*http.Response, error) {
	var reader *bytes.Reader
	if body == nil {
		reader = bytes.NewReader([]byte{})
	} else {
		reader = bytes.NewReader(body)
	}
	req, err := http.NewRequest(method, client.createURL(base, cmd), reader)
	if err != nil {
		return nil, err
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	if len(client.Config.BasicAuth) > 0 {
		fields := strings.Split(client.Config.BasicAuth, ":")
		if len(fields) != 2 {
			return nil, fmt.Errorf("invalid format of basic auth entry '%v' expected 'user:pass'", client.Config.BasicAuth)
		}
		req.SetBasicAuth(fields[0], fields[1])
	}

	return client.http.Do(req)
}

// Get creates http get request and returns the body of the response.
func (client *HTTPClient) Get(base string, cmd string) ([]byte, error) {
	return client.call(http.MethodGet, base, cmd, nil)
}

// Put creates http put request with JSON body and returns the body of the response.
func (client *HTTPClient) Put(base string, cmd string, body []byte) ([]byte, error) {
	return client.call(http.MethodPut, base, cmd, body)
}

// Delete creates http delete request and returns the body of the response.
func (client *HTTPClient) Delete(base string, cmd string) ([]byte, error) {
	return client.call(http.MethodDelete, base, cmd, nil)
}

func (client *HTTPClient) call(method, base, cmd string, body []byte) ([]byte, error) {
	res, err := client.do(method, base, cmd, body)
	if err != nil {
		return nil, errors.Wrapf(err, "%s %s", method, cmd)
	}
	defer res.Body.Close()

	b, err := ioutil.ReadAll(res.Body)
	if err != nil {
		return nil, err
	}
	if res.StatusCode < 200 || res.StatusCode > 299 {
		return nil, errors.Errorf("%s %s: %s: %s", method, cmd, res.Status, strings.TrimSpace(string(b)))
	}
	return b, nil
}

// ToYAML renders a JSON response as YAML.
func ToYAML(data []byte) (string, error) {
	if len(bytes.TrimSpace(data)) == 0 {
		return "", nil
	}
	out, err := yaml.JSONToYAML(data)
	if err != nil {
		return "", errors.Wrap(err, "malformed response")
	}
	return string(out), nil
}

// ReadResourceFile reads a YAML (or JSON) resource definition and returns it
// encoded as JSON.
func ReadResourceFile(path string) ([]byte, error) {
	data, err := ioutil.ReadFile(path)
	if err != nil {
		return nil, err
	}
	out, err := yaml.YAMLToJSON(data)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to parse %s", path)
	}
	return out, nil
}
