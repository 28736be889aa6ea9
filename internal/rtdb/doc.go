// Package rtdb is the dashboard's access layer to the realtime key-path
// store. Store is the interface every domain package depends on; Firebase
// talks to a hosted Firebase Realtime Database and Memory keeps the tree in
// process for local runs and tests.
package rtdb
