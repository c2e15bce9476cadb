/*
Package topology plans the layout of a search cluster from desired role counts.

Planning is a pure function: no resources are touched, and the same counts
always produce the same plan. The provisioning layer consumes the resulting
capacity groups.

# Seed Election

Exactly one node seeds cluster discovery. It is carved out of the manager
allotment when any managers were requested, otherwise out of the data
allotment, and is planned as its own group of size one so its network
identity is stable before the scalable groups launch:

	counts                      seed     manager group   data group
	manager=3 data=4            manager  2               4
	manager=0 data=1            data     -               -
	manager=0 data=0            ConfigError

# Groups

Groups are fixed size (min == max == desired) and a group is only planned
when its size is positive. Without dedicated client nodes the data group is
the client-facing target, so no idle client capacity is created.
*/
package topology
