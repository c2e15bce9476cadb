/*
Package assembler renders the settings document and JVM options for each
node role of a planned cluster.

# Merge Order

The order is fixed and cannot be changed by callers:

	1. base template        single-node or multi-node variant
	2. cluster identity     cluster.name from deployment, account and region
	3. discovery            multi-node only: seed hosts, initial manager node
	4. role overlay         node.roles for manager/seed/data/client/ml
	5. feature overlays     remote store, security plugin
	6. heap                 -Xms/-Xmx in the options file (auto or override)
	7. user overlay         raw text, appended last

Steps 1 to 5 are structured merges. The user overlay is a literal append and
may repeat keys; the last occurrence wins when the document is loaded.

The port key (PortSetting) must stay flat. The node supervisor edits it line
by line, so a document that nests it (http: with an indented port:) is
rejected.

# Usage

	a := assembler.NewAssembler(nil) // embedded templates
	cfg, err := a.Assemble(assembler.Input{
		Identity: id,
		Plan:     plan,
		Role:     types.NodeRoleData,
		Heap:     assembler.HeapOptions{Auto: true, MemoryMiB: 32768},
	})
*/
package assembler
