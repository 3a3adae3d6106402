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

package cmd

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/contiv/vtn/pkg/vtnclient"
	"github.com/contiv/vtn/plugins/driver"
	"github.com/contiv/vtn/plugins/packetio"
	"github.com/contiv/vtn/plugins/topology"
	"github.com/contiv/vtn/plugins/vtn"
	"github.com/contiv/vtn/plugins/vtnrsc"
)

var (
	server     string
	configFile string
	verbose    bool
	resource   string
)

var cmdState = &cobra.Command{
	Use:   "state",
	Short: "Shows the replicated state of the VTN",
	Args:  cobra.ExactArgs(0),
	Run: func(cmd *cobra.Command, args []string) {
		printGet(vtn.StateURL)
	},
}

var cmdExPort = &cobra.Command{
	Use:   "ex-port [name]",
	Short: "Shows or sets the name of the external port of gateway switches",
	Args:  cobra.MaximumNArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		if len(args) == 0 {
			printGet(vtn.ExPortURL)
			return
		}
		body, err := json.Marshal(&vtn.ExPortConfig{Name: args[0]})
		exitOnError(err)
		_, err = newClient().Put(server, vtn.ExPortURL, body)
		exitOnError(err)
		fmt.Printf("external port set to %s\n", args[0])
	},
}

var cmdDevices = &cobra.Command{
	Use:   "devices",
	Short: "Shows controllers and switches known to the topology",
	Args:  cobra.ExactArgs(0),
	Run: func(cmd *cobra.Command, args []string) {
		printGet(topology.DevicesURL)
	},
}

var cmdHosts = &cobra.Command{
	Use:   "hosts",
	Short: "Shows VM hosts attached to the switches",
	Args:  cobra.ExactArgs(0),
	Run: func(cmd *cobra.Command, args []string) {
		printGet(topology.HostsURL)
	},
}

var cmdNodes = &cobra.Command{
	Use:   "nodes",
	Short: "Shows bridges, tunnels and ports configured by the driver",
	Args:  cobra.ExactArgs(0),
	Run: func(cmd *cobra.Command, args []string) {
		printGet(driver.NodesURL)
	},
}

var cmdPackets = &cobra.Command{
	Use:   "packets",
	Short: "Shows packets emitted to the data plane",
	Args:  cobra.ExactArgs(0),
	Run: func(cmd *cobra.Command, args []string) {
		printGet(packetio.EmittedURL)
	},
}

var cmdResources = &cobra.Command{
	Use:   "resources",
	Short: "Shows the tenant resource inventory",
	Args:  cobra.ExactArgs(0),
	Run: func(cmd *cobra.Command, args []string) {
		printGet(vtnrsc.ResourcesURL)
	},
}

var cmdApply = &cobra.Command{
	Use:   "apply kind -f file",
	Short: "Creates or updates a tenant resource (networks, subnets, ports, router-interfaces, floating-ips)",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		if resource == "" {
			exitOnError(fmt.Errorf("resource file must be given with -f"))
		}
		body, err := vtnclient.ReadResourceFile(resource)
		exitOnError(err)
		logrus.Debugf("PUT %s/%s %s", vtnrsc.ResourcesURL, args[0], string(body))
		_, err = newClient().Put(server, vtnrsc.ResourcesURL+"/"+args[0], body)
		exitOnError(err)
		fmt.Printf("%s applied\n", args[0])
	},
}

var cmdDelete = &cobra.Command{
	Use:   "delete kind id",
	Short: "Deletes a tenant resource",
	Args:  cobra.ExactArgs(2),
	Run: func(cmd *cobra.Command, args []string) {
		_, err := newClient().Delete(server, vtnrsc.ResourcesURL+"/"+args[0]+"/"+args[1])
		exitOnError(err)
		fmt.Printf("%s %s deleted\n", args[0], args[1])
	},
}

func newClient() *vtnclient.HTTPClient {
	client, err := vtnclient.CreateHTTPClient(configFile)
	exitOnError(err)
	return client
}

func printGet(url string) {
	logrus.Debugf("GET %s from %s", url, server)
	data, err := newClient().Get(server, url)
	exitOnError(err)
	out, err := vtnclient.ToYAML(data)
	exitOnError(err)
	fmt.Print(out)
}

func exitOnError(err error) {
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// Execute will execute the command vtnctl
func Execute() {
	var rootCmd = &cobra.Command{
		Use:   "vtnctl",
		Short: "Inspects and configures the VTN agent of a controller node",
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			if verbose {
				logrus.SetLevel(logrus.DebugLevel)
			}
		},
	}
	rootCmd.PersistentFlags().StringVarP(&server, "server", "s", "localhost", "address of the VTN agent")
	rootCmd.PersistentFlags().StringVarP(&configFile, "http-config", "c", "",
		"http client config file (defaults to $"+vtnclient.ConfigEnvVar+")")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "print requests")
	cmdApply.Flags().StringVarP(&resource, "file", "f", "", "YAML or JSON file with the resource")

	rootCmd.AddCommand(cmdState)
	rootCmd.AddCommand(cmdExPort)
	rootCmd.AddCommand(cmdDevices)
	rootCmd.AddCommand(cmdHosts)
	rootCmd.AddCommand(cmdNodes)
	rootCmd.AddCommand(cmdPackets)
	rootCmd.AddCommand(cmdResources)
	rootCmd.AddCommand(cmdApply)
	rootCmd.AddCommand(cmdDelete)
	if err := rootCmd.Execute(); err != nil {
		fmt.Println(err)
		os.Exit(1)
	}
}
