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
	"io/ioutil"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	. "github.com/onsi/gomega"
)

func newTestClient(auth string) *HTTPClient {
	client, err := CreateHTTPClient("")
	Expect(err).To(BeNil())
	client.Config.BasicAuth = auth
	return client
}

func serverBase(server *httptest.Server) string {
	return strings.TrimPrefix(server.URL, "http://")
}

func TestGetAndPut(t *testing.T) {
	RegisterTestingT(t)

	var lastBody, contentType string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
		switch req.Method {
		case http.MethodGet:
			w.Write([]byte(`{"name":"eth1"}`))
		case http.MethodPut:
			b, _ := ioutil.ReadAll(req.Body)
			lastBody = string(b)
			contentType = req.Header.Get("Content-Type")
			w.WriteHeader(http.StatusOK)
		}
	}))
	defer server.Close()

	client := newTestClient("")
	out, err := client.Get(serverBase(server), "/vtn/v1/ex-port")
	Expect(err).To(BeNil())
	Expect(string(out)).To(Equal(`{"name":"eth1"}`))

	_, err = client.Put(serverBase(server), "vtn/v1/ex-port", []byte(`{"name":"eth2"}`))
	Expect(err).To(BeNil())
	Expect(lastBody).To(Equal(`{"name":"eth2"}`))
	Expect(contentType).To(Equal("application/json"))
}

func TestErrorStatus(t *testing.T) {
	RegisterTestingT(t)

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
		http.Error(w, "unknown kind", http.StatusBadRequest)
	}))
	defer server.Close()

	client := newTestClient("")
	_, err := client.Delete(serverBase(server), "vtn/v1/resources/foo/1")
	Expect(err).ToNot(BeNil())
	Expect(err.Error()).To(ContainSubstring("400"))
	Expect(err.Error()).To(ContainSubstring("unknown kind"))
}

func TestBasicAuth(t *testing.T) {
	RegisterTestingT(t)

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
		user, pass, ok := req.BasicAuth()
		if !ok || user != "admin" || pass != "secret" {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		w.Write([]byte(`{}`))
	}))
	defer server.Close()

	_, err := newTestClient("admin:secret").Get(serverBase(server), "vtn/v1/state")
	Expect(err).To(BeNil())

	_, err = newTestClient("admin").Get(serverBase(server), "vtn/v1/state")
	Expect(err).To(MatchError(ContainSubstring("invalid format of basic auth entry")))
}

func TestCreateURL(t *testing.T) {
	RegisterTestingT(t)

	client := &HTTPClient{Config: &HTTPClientConfig{Port: "9191"}}
	Expect(client.createURL("10.0.0.1", "/vtn/v1/state")).To(Equal("http://10.0.0.1:9191/vtn/v1/state"))
	Expect(client.createURL("10.0.0.1:8080", "vtn/v1/state")).To(Equal("http://10.0.0.1:8080/vtn/v1/state"))

	client.Config.UseHTTPS = true
	Expect(client.createURL("ctrl", "vtn/v1/state")).To(HavePrefix("https://ctrl:9191/"))
}

func TestConfigFile(t *testing.T) {
	RegisterTestingT(t)

	dir, err := ioutil.TempDir("", "vtnclient")
	Expect(err).To(BeNil())
	defer os.RemoveAll(dir)

	path := filepath.Join(dir, "client.conf")
	Expect(ioutil.WriteFile(path, []byte("port: \"8080\"\nuse-https: true\n"), 0644)).To(Succeed())

	client, err := CreateHTTPClient(path)
	Expect(err).To(BeNil())
	Expect(client.Config.Port).To(Equal("8080"))
	Expect(client.Config.UseHTTPS).To(BeTrue())
}

func TestYAMLConversion(t *testing.T) {
	RegisterTestingT(t)

	out, err := ToYAML([]byte(`{"exPortName":"eth1","controllers":["10.0.0.1"]}`))
	Expect(err).To(BeNil())
	Expect(out).To(ContainSubstring("exPortName: eth1"))
	Expect(out).To(ContainSubstring("- 10.0.0.1"))

	out, err = ToYAML(nil)
	Expect(err).To(BeNil())
	Expect(out).To(BeEmpty())

	dir, err := ioutil.TempDir("", "vtnclient")
	Expect(err).To(BeNil())
	defer os.RemoveAll(dir)
	path := filepath.Join(dir, "net.yaml")
	Expect(ioutil.WriteFile(path, []byte("id: net1\nsegmentationId: 100\n"), 0644)).To(Succeed())

	body, err := ReadResourceFile(path)
	Expect(err).To(BeNil())
	Expect(body).To(MatchJSON(`{"id":"net1","segmentationId":100}`))
}
