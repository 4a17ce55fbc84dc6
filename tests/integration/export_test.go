// Copyright 2024 vshell Authors
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package integration

import (
	"testing"

	. "github.com/onsi/gomega"
)

func TestDaemonExport(t *testing.T) {
	if testing.Short() {
		t.Skip("Skipping integration test in short mode")
	}
	t.Parallel()
	g := NewWithT(t)
	env := NewTestEnv(t, "export")
	env.StartDaemon()
	id := env.OpenSession()

	result := env.RunCLI("export", "--session", id, "--addr", "127.0.0.1:0")
	g.Expect(result.ExitCode).To(Equal(0), result.Combined)
	g.Expect(result.Stdout).To(ContainSubstring("Exported session " + id + " at 127.0.0.1:"))
	g.Expect(result.Stdout).To(ContainSubstring("mount -t nfs"))

	result = env.RunCLI("daemon", "status")
	g.Expect(result.Stdout).To(ContainSubstring("Exports: 1"))
	g.Expect(result.Stdout).To(ContainSubstring("nfs://127.0.0.1:"))

	result = env.RunCLI("export", "--session", id, "--addr", "127.0.0.1:0")
	g.Expect(result.ExitCode).NotTo(Equal(0))

	result = env.RunCLI("export", "--session", id, "--stop")
	g.Expect(result.ExitCode).To(Equal(0), result.Combined)

	result = env.RunCLI("daemon", "status")
	g.Expect(result.Stdout).To(ContainSubstring("Exports: 0"))
}
