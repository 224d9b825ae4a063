// Copyright 2013 - 2015 Sebastian Ruml <sebastian.ruml@gmail.com>
// Copyright 2021 - 2022 Mendel Greenberg <mendel@chabad360.me>

//Package osc receives OpenSoundControl packets and turns them into numeric values.
//
//This implementation is based on the Open Sound Control 1.0 Specification (http://opensoundcontrol.org/spec-1_0.html).
//
//Open Sound Control (OSC) is an open, transport-independent, message-based protocol developed for communication among computers,
//sound synthesizers, and other multimedia devices.
//
//Features
//
//- Decodes OSC messages with the following TypeTags, widening every argument to float64:
//
//	'i' (int32)
//	'f' (float32)
//	'd' (float64)
//
//- Decodes OSC bundles, including nested bundles. TimeTags are carried but not scheduled.
//
//- A UDP listener with a stop/start state machine that publishes the first argument of every received message.
//
//Packets
//
//The unit of transmission of OSC is an OSC Packet. Any application that sends OSC Packets is an OSC Client;
//any application that receives OSC Packets is an OSC Server.
//
//An OSC packet consists of its contents, a contiguous block of binary data.
//The size of an OSC packet is always 32-bit aligned.
//
//OSC packets come in two flavors:
//
//OSC Messages: An OSC message consists of an OSC address pattern and  zero or more OSC arguments.
//
//OSC Bundles: An OSC Bundle consists of an OSC Timetag, followed by zero or more OSC bundle elements.
//Each bundle element can be another OSC bundle or OSC message.
//
//Usage
//
//Decoding a datagram:
//  for addr, args := range osc.Decode(buf) {
//      fmt.Println(addr, args)
//  }
//
//OSC client example:
//  client, _ := osc.Dial("localhost:10000")
//  msg := osc.NewMessage("/fader1")
//  msg.Append(float32(0.75))
//  client.Send(msg)
//
//OSC server example:
//  server := &osc.Server{Addr: "127.0.0.1:10000"}
//  err := server.Start(osc.PublisherFunc(func(addr string, v float64) {
//      fmt.Println(addr, v)
//  }))
//  ...
//  server.Stop()
package osc
