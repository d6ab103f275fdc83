/*
Package session coordinates persisted context snapshots.

It serialises Save, Load and Delete per owner id, in process with reference
counted mutexes and, optionally, across replicas with a ports.DistributedLocker
sharing the same snapshot store.
*/
package session
