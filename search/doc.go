// Package search defines the search request that flows through the region
// profile stage and the cache that recycles requests.
//
// A request is prepared on the CPU (key, static partitions, region budget),
// copied into a device buffer, profiled by the device and finally extracted
// back into Profile. Requests are owned by a Cache from Alloc to Free.
package search
